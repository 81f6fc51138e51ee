package nfe

import "github.com/sirosfoundation/go-fiscal/pkg/scalar"

// NFe is the input graph of an NF-e 4.00 document. JSON member names are
// the schema element names.
type NFe struct {
	Ide         *Ide             `json:"ide"`
	Emit        *Emit            `json:"emit"`
	Avulsa      *Avulsa          `json:"avulsa,omitempty"`
	Dest        *Dest            `json:"dest,omitempty"`
	Retirada    *Local           `json:"retirada,omitempty"`
	Entrega     *Local           `json:"entrega,omitempty"`
	AutXML      []Party          `json:"autXML,omitempty"`
	Det         scalar.List[Det] `json:"det"`
	Total       *Total           `json:"total"`
	Transp      *Transp          `json:"transp"`
	Cobr        *Cobr            `json:"cobr,omitempty"`
	Pag         *Pag             `json:"pag,omitempty"`
	InfIntermed *InfIntermed     `json:"infIntermed,omitempty"`
	InfAdic     *InfAdic         `json:"infAdic,omitempty"`
	Exporta     *Exporta         `json:"exporta,omitempty"`
	InfRespTec  *InfRespTec      `json:"infRespTec,omitempty"`
}

// Ide is the identification group.
type Ide struct {
	CUF          Text    `json:"cUF"`
	CNF          Text    `json:"cNF,omitempty"`
	NatOp        Text    `json:"natOp"`
	Mod          Text    `json:"mod"`
	Serie        Text    `json:"serie"`
	NNF          Text    `json:"nNF"`
	DhEmi        Text    `json:"dhEmi"`
	DhSaiEnt     Text    `json:"dhSaiEnt,omitempty"`
	DPrevEntrega Text    `json:"dPrevEntrega,omitempty"`
	TpNF         Text    `json:"tpNF"`
	IdDest       Text    `json:"idDest"`
	CMunFG       Text    `json:"cMunFG"`
	CMunFGIBS    Text    `json:"cMunFGIBS,omitempty"`
	TpImp        Text    `json:"tpImp"`
	TpEmis       Text    `json:"tpEmis"`
	CDV          Text    `json:"cDV,omitempty"`
	TpAmb        Text    `json:"tpAmb"`
	FinNFe       Text    `json:"finNFe"`
	IndFinal     Text    `json:"indFinal"`
	IndPres      Text    `json:"indPres"`
	IndIntermed  *Text   `json:"indIntermed,omitempty"`
	ProcEmi      Text    `json:"procEmi"`
	VerProc      Text    `json:"verProc"`
	DhCont       Text    `json:"dhCont,omitempty"`
	XJust        Text    `json:"xJust,omitempty"`
	NFref        []NFRef `json:"NFref,omitempty"`
}

// NFRef references another fiscal document.
type NFRef struct {
	RefNFe    Text   `json:"refNFe,omitempty"`
	RefNFeSig Text   `json:"refNFeSig,omitempty"`
	RefNF     *RefNF `json:"refNF,omitempty"`
	RefCTe    Text   `json:"refCTe,omitempty"`
}

// RefNF references a model 1/1A paper invoice.
type RefNF struct {
	CUF   Text `json:"cUF"`
	AAMM  Text `json:"AAMM"`
	CNPJ  Text `json:"CNPJ"`
	Mod   Text `json:"mod"`
	Serie Text `json:"serie"`
	NNF   Text `json:"nNF"`
}

// Address is the common address group (enderEmit, enderDest).
type Address struct {
	XLgr    Text `json:"xLgr,omitempty"`
	Nro     Text `json:"nro,omitempty"`
	XCpl    Text `json:"xCpl,omitempty"`
	XBairro Text `json:"xBairro,omitempty"`
	CMun    Text `json:"cMun,omitempty"`
	XMun    Text `json:"xMun,omitempty"`
	UF      Text `json:"UF,omitempty"`
	CEP     Text `json:"CEP,omitempty"`
	CPais   Text `json:"cPais,omitempty"`
	XPais   Text `json:"xPais,omitempty"`
	Fone    Text `json:"fone,omitempty"`
}

// Local is a pickup or delivery location (retirada, entrega).
type Local struct {
	CNPJ  Text `json:"CNPJ,omitempty"`
	CPF   Text `json:"CPF,omitempty"`
	XNome Text `json:"xNome,omitempty"`
	Address
	Email Text `json:"email,omitempty"`
	IE    Text `json:"IE,omitempty"`
}

// Party identifies a person or company by CNPJ or CPF.
type Party struct {
	CNPJ Text `json:"CNPJ,omitempty"`
	CPF  Text `json:"CPF,omitempty"`
}

// Emit is the issuer.
type Emit struct {
	CNPJ      Text     `json:"CNPJ,omitempty"`
	CPF       Text     `json:"CPF,omitempty"`
	XNome     Text     `json:"xNome"`
	XFant     Text     `json:"xFant,omitempty"`
	EnderEmit *Address `json:"enderEmit,omitempty"`
	IE        Text     `json:"IE,omitempty"`
	IEST      Text     `json:"IEST,omitempty"`
	IM        Text     `json:"IM,omitempty"`
	CNAE      Text     `json:"CNAE,omitempty"`
	CRT       Text     `json:"CRT"`
}

// TaxpayerID returns the issuer CNPJ, or its CPF when no CNPJ is given.
func (e *Emit) TaxpayerID() string {
	if e == nil {
		return ""
	}
	return e.CNPJ.Or(e.CPF.String())
}

// Avulsa is the tax office block of a stand-alone invoice.
type Avulsa struct {
	CNPJ    Text     `json:"CNPJ"`
	XOrgao  Text     `json:"xOrgao"`
	Matr    Text     `json:"matr"`
	XAgente Text     `json:"xAgente"`
	Fone    Text     `json:"fone,omitempty"`
	UF      Text     `json:"UF"`
	NDAR    Text     `json:"nDAR,omitempty"`
	DEmi    Text     `json:"dEmi,omitempty"`
	VDAR    *Decimal `json:"vDAR,omitempty"`
	RepEmi  Text     `json:"repEmi"`
	DPag    Text     `json:"dPag,omitempty"`
}

// Dest is the recipient.
type Dest struct {
	CNPJ          Text     `json:"CNPJ,omitempty"`
	CPF           Text     `json:"CPF,omitempty"`
	IDEstrangeiro Text     `json:"idEstrangeiro,omitempty"`
	XNome         Text     `json:"xNome,omitempty"`
	EnderDest     *Address `json:"enderDest,omitempty"`
	IndIEDest     Text     `json:"indIEDest"`
	IE            Text     `json:"IE,omitempty"`
	ISUF          Text     `json:"ISUF,omitempty"`
	IM            Text     `json:"IM,omitempty"`
	Email         Text     `json:"email,omitempty"`
}

// Det is one line item.
type Det struct {
	NItem        Text          `json:"nItem"`
	Prod         *Prod         `json:"prod"`
	Imposto      *Imposto      `json:"imposto,omitempty"`
	ImpostoDevol *ImpostoDevol `json:"impostoDevol,omitempty"`
	InfAdProd    Text          `json:"infAdProd,omitempty"`
}

// Prod is the product of a line item.
type Prod struct {
	CProd    Text     `json:"cProd"`
	CEAN     Text     `json:"cEAN,omitempty"`
	XProd    Text     `json:"xProd"`
	NCM      Text     `json:"NCM"`
	NVE      Text     `json:"NVE,omitempty"`
	CEST     Text     `json:"CEST,omitempty"`
	IndEsc   Text     `json:"indEscala,omitempty"`
	CNPJFab  Text     `json:"CNPJFab,omitempty"`
	CBenef   Text     `json:"cBenef,omitempty"`
	EXTIPI   Text     `json:"EXTIPI,omitempty"`
	CFOP     Text     `json:"CFOP"`
	UCom     Text     `json:"uCom"`
	QCom     Decimal  `json:"qCom"`
	VUnCom   Decimal  `json:"vUnCom"`
	VProd    Decimal  `json:"vProd"`
	CEANTrib Text     `json:"cEANTrib,omitempty"`
	UTrib    Text     `json:"uTrib,omitempty"`
	QTrib    *Decimal `json:"qTrib,omitempty"`
	VUnTrib  *Decimal `json:"vUnTrib,omitempty"`
	VFrete   *Decimal `json:"vFrete,omitempty"`
	VSeg     *Decimal `json:"vSeg,omitempty"`
	VDesc    *Decimal `json:"vDesc,omitempty"`
	VOutro   *Decimal `json:"vOutro,omitempty"`
	IndTot   Text     `json:"indTot,omitempty"`
	XPed     Text     `json:"xPed,omitempty"`
	NItemPed Text     `json:"nItemPed,omitempty"`
	NFCI     Text     `json:"nFCI,omitempty"`
	Rastro   []Rastro `json:"rastro,omitempty"`
}

// Rastro tracks a production batch.
type Rastro struct {
	NLote  Text    `json:"nLote"`
	QLote  Decimal `json:"qLote"`
	DFab   Text    `json:"dFab"`
	DVal   Text    `json:"dVal,omitempty"`
	CAgreg Text    `json:"cAgreg,omitempty"`
}

// Imposto groups the taxes of a line item.
type Imposto struct {
	VTotTrib *Decimal  `json:"vTotTrib,omitempty"`
	ICMS     *TaxGroup `json:"ICMS,omitempty"`
	ISSQN    *ISSQN    `json:"ISSQN,omitempty"`
	IPI      *IPI      `json:"IPI,omitempty"`
	II       *II       `json:"II,omitempty"`
	PIS      *TaxGroup `json:"PIS,omitempty"`
	PISST    *PISST    `json:"PISST,omitempty"`
	COFINS   *TaxGroup `json:"COFINS,omitempty"`
	COFINSST *COFINSST `json:"COFINSST,omitempty"`
}

// ISSQN is the municipal service tax of a line item.
type ISSQN struct {
	VBC          Decimal  `json:"vBC"`
	VAliq        Decimal  `json:"vAliq"`
	VISSQN       Decimal  `json:"vISSQN"`
	CMunFG       Text     `json:"cMunFG"`
	CListServ    Text     `json:"cListServ"`
	VDeducao     *Decimal `json:"vDeducao,omitempty"`
	VOutro       *Decimal `json:"vOutro,omitempty"`
	VDescIncond  *Decimal `json:"vDescIncond,omitempty"`
	VDescCond    *Decimal `json:"vDescCond,omitempty"`
	VISSRet      *Decimal `json:"vISSRet,omitempty"`
	IndISS       Text     `json:"indISS"`
	CServico     Text     `json:"cServico,omitempty"`
	CMun         Text     `json:"cMun,omitempty"`
	CPais        Text     `json:"cPais,omitempty"`
	NProcesso    Text     `json:"nProcesso,omitempty"`
	IndIncentivo Text     `json:"indIncentivo"`
}

// IPI is the federal excise tax of a line item.
type IPI struct {
	ClEnq    Text     `json:"clEnq,omitempty"`
	CNPJProd Text     `json:"CNPJProd,omitempty"`
	CSelo    Text     `json:"cSelo,omitempty"`
	QSelo    *Text    `json:"qSelo,omitempty"`
	CEnq     Text     `json:"cEnq,omitempty"`
	IPITrib  *IPIItem `json:"IPITrib,omitempty"`
	IPINT    *IPIItem `json:"IPINT,omitempty"`
}

// IPIItem is the IPITrib or IPINT variant.
type IPIItem struct {
	CST   *Text    `json:"CST,omitempty"`
	VBC   *Decimal `json:"vBC,omitempty"`
	PIPI  *Decimal `json:"pIPI,omitempty"`
	QUnid *Decimal `json:"qUnid,omitempty"`
	VUnid *Decimal `json:"vUnid,omitempty"`
	VIPI  *Decimal `json:"vIPI,omitempty"`
}

// II is the import tax of a line item.
type II struct {
	VBC      Decimal `json:"vBC"`
	VDespAdu Decimal `json:"vDespAdu"`
	VII      Decimal `json:"vII"`
	VIOF     Decimal `json:"vIOF"`
}

// PISST is PIS under tax substitution.
type PISST struct {
	VBC          *Decimal `json:"vBC,omitempty"`
	PPIS         *Decimal `json:"pPIS,omitempty"`
	QBCProd      *Decimal `json:"qBCProd,omitempty"`
	VAliqProd    *Decimal `json:"vAliqProd,omitempty"`
	VPIS         Decimal  `json:"vPIS"`
	IndSomaPISST *Text    `json:"indSomaPISST,omitempty"`
}

// COFINSST is COFINS under tax substitution.
type COFINSST struct {
	VBC             *Decimal `json:"vBC,omitempty"`
	PCOFINS         *Decimal `json:"pCOFINS,omitempty"`
	QBCProd         *Decimal `json:"qBCProd,omitempty"`
	VAliqProd       *Decimal `json:"vAliqProd,omitempty"`
	VCOFINS         Decimal  `json:"vCOFINS"`
	IndSomaCOFINSST *Text    `json:"indSomaCOFINSST,omitempty"`
}

// ImpostoDevol is the returned-goods block of a line item.
type ImpostoDevol struct {
	PDevol Decimal `json:"pDevol"`
	IPI    struct {
		VIPIDevol Decimal `json:"vIPIDevol"`
	} `json:"IPI"`
}

// Total holds the document totals.
type Total struct {
	ICMSTot  *ICMSTot  `json:"ICMSTot,omitempty"`
	ISSQNtot *ISSQNtot `json:"ISSQNtot,omitempty"`
}

// ICMSTot is the goods totals group.
type ICMSTot struct {
	VBC            Decimal  `json:"vBC"`
	VICMS          Decimal  `json:"vICMS"`
	VICMSDeson     Decimal  `json:"vICMSDeson"`
	VFCPUFDest     *Decimal `json:"vFCPUFDest,omitempty"`
	VICMSUFDest    *Decimal `json:"vICMSUFDest,omitempty"`
	VICMSUFRemet   *Decimal `json:"vICMSUFRemet,omitempty"`
	VFCP           Decimal  `json:"vFCP"`
	VBCST          Decimal  `json:"vBCST"`
	VST            Decimal  `json:"vST"`
	VFCPST         Decimal  `json:"vFCPST"`
	VFCPSTRet      Decimal  `json:"vFCPSTRet"`
	QBCMono        *Decimal `json:"qBCMono,omitempty"`
	VICMSMono      *Decimal `json:"vICMSMono,omitempty"`
	QBCMonoReten   *Decimal `json:"qBCMonoReten,omitempty"`
	VICMSMonoReten *Decimal `json:"vICMSMonoReten,omitempty"`
	QBCMonoRet     *Decimal `json:"qBCMonoRet,omitempty"`
	VICMSMonoRet   *Decimal `json:"vICMSMonoRet,omitempty"`
	VProd          Decimal  `json:"vProd"`
	VFrete         Decimal  `json:"vFrete"`
	VSeg           Decimal  `json:"vSeg"`
	VDesc          Decimal  `json:"vDesc"`
	VII            Decimal  `json:"vII"`
	VIPI           Decimal  `json:"vIPI"`
	VIPIDevol      Decimal  `json:"vIPIDevol"`
	VPIS           Decimal  `json:"vPIS"`
	VCOFINS        Decimal  `json:"vCOFINS"`
	VOutro         Decimal  `json:"vOutro"`
	VNF            Decimal  `json:"vNF"`
	VTotTrib       *Decimal `json:"vTotTrib,omitempty"`
}

// ISSQNtot is the services totals group.
type ISSQNtot struct {
	VServ       *Decimal `json:"vServ,omitempty"`
	VBC         *Decimal `json:"vBC,omitempty"`
	VISS        *Decimal `json:"vISS,omitempty"`
	VPIS        *Decimal `json:"vPIS,omitempty"`
	VCOFINS     *Decimal `json:"vCOFINS,omitempty"`
	DCompet     Text     `json:"dCompet,omitempty"`
	VDeducao    *Decimal `json:"vDeducao,omitempty"`
	VOutro      *Decimal `json:"vOutro,omitempty"`
	VDescIncond *Decimal `json:"vDescIncond,omitempty"`
	VDescCond   *Decimal `json:"vDescCond,omitempty"`
	VISSRet     *Decimal `json:"vISSRet,omitempty"`
	CRegTrib    *Text    `json:"cRegTrib,omitempty"`
}

// Transp is the transport group.
type Transp struct {
	ModFrete   Text             `json:"modFrete"`
	Transporta *Transporta      `json:"transporta,omitempty"`
	RetTransp  *RetTransp       `json:"retTransp,omitempty"`
	Vol        scalar.List[Vol] `json:"vol,omitempty"`
}

// Transporta is the carrier.
type Transporta struct {
	CNPJ   Text `json:"CNPJ,omitempty"`
	CPF    Text `json:"CPF,omitempty"`
	XNome  Text `json:"xNome,omitempty"`
	IE     Text `json:"IE,omitempty"`
	XEnder Text `json:"xEnder,omitempty"`
	XMun   Text `json:"xMun,omitempty"`
	UF     Text `json:"UF,omitempty"`
}

// RetTransp is the ICMS withheld on transport.
type RetTransp struct {
	VServ    Decimal `json:"vServ"`
	VBCRet   Decimal `json:"vBCRet"`
	PICMSRet Decimal `json:"pICMSRet"`
	VICMSRet Decimal `json:"vICMSRet"`
	CFOP     Text    `json:"CFOP"`
	CMunFG   Text    `json:"cMunFG"`
}

// Vol is a transported volume.
type Vol struct {
	QVol  *Text    `json:"qVol,omitempty"`
	Esp   Text     `json:"esp,omitempty"`
	Marca Text     `json:"marca,omitempty"`
	NVol  Text     `json:"nVol,omitempty"`
	PesoL *Decimal `json:"pesoL,omitempty"`
	PesoB *Decimal `json:"pesoB,omitempty"`
}

// Cobr is the billing group.
type Cobr struct {
	Fat *Fat  `json:"fat,omitempty"`
	Dup []Dup `json:"dup,omitempty"`
}

// Fat is the invoice of a billing group.
type Fat struct {
	NFat  Text     `json:"nFat,omitempty"`
	VOrig *Decimal `json:"vOrig,omitempty"`
	VDesc *Decimal `json:"vDesc,omitempty"`
	VLiq  *Decimal `json:"vLiq,omitempty"`
}

// Dup is one installment.
type Dup struct {
	NDup  Text    `json:"nDup,omitempty"`
	DVenc Text    `json:"dVenc,omitempty"`
	VDup  Decimal `json:"vDup"`
}

// Pag is the payment group.
type Pag struct {
	DetPag scalar.List[DetPag] `json:"detPag"`
	VTroco *Decimal            `json:"vTroco,omitempty"`
}

// DetPag is one payment.
type DetPag struct {
	IndPag *Text   `json:"indPag,omitempty"`
	TPag   Text    `json:"tPag"`
	VPag   Decimal `json:"vPag"`
	DEmi   Text    `json:"dEmi,omitempty"`
	CNPJ   Text    `json:"CNPJ,omitempty"`
	TBand  Text    `json:"tBand,omitempty"`
	CAut   Text    `json:"cAut,omitempty"`
	Card   *Card   `json:"card,omitempty"`
}

// Card is the card operator of a payment.
type Card struct {
	CNPJ  Text `json:"CNPJ,omitempty"`
	TBand Text `json:"tBand,omitempty"`
	CAut  Text `json:"cAut,omitempty"`
}

// InfIntermed identifies the intermediary platform.
type InfIntermed struct {
	CNPJ         Text `json:"CNPJ"`
	IDCadIntTran Text `json:"idCadIntTran,omitempty"`
}

// InfAdic is the additional information group.
type InfAdic struct {
	InfAdFisco Text `json:"infAdFisco,omitempty"`
	InfCpl     Text `json:"infCpl,omitempty"`
}

// Exporta is the export group.
type Exporta struct {
	UFSaidaPais  Text `json:"UFSaidaPais"`
	XLocExporta  Text `json:"xLocExporta,omitempty"`
	XLocDespacho Text `json:"xLocDespacho,omitempty"`
}

// InfRespTec identifies the technical contact of the issuing software.
type InfRespTec struct {
	CNPJ     Text `json:"CNPJ"`
	XContato Text `json:"xContato"`
	Email    Text `json:"email"`
	Fone     Text `json:"fone"`
	IDCSRT   Text `json:"idCSRT,omitempty"`
	HashCSRT Text `json:"hashCSRT,omitempty"`
}
