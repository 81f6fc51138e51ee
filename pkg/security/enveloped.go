package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Profile fixes the digest and signature algorithms of a document family.
type Profile struct {
	Name         string
	Hash         crypto.Hash
	DigestURI    string
	SignatureURI string
}

var (
	// ProfileNFe signs NF-e 4.00 documents, events and inutilizations.
	ProfileNFe = Profile{Name: "nfe", Hash: crypto.SHA256, DigestURI: AlgorithmSHA256, SignatureURI: AlgorithmRSASHA256}

	// ProfileNFSe signs the São Paulo NFS-e batch messages.
	ProfileNFSe = Profile{Name: "nfse", Hash: crypto.SHA1, DigestURI: AlgorithmSHA1, SignatureURI: AlgorithmRSASHA1}
)

// EnvelopedSigner produces enveloped XML-DSig signatures.
type EnvelopedSigner struct {
	creds   *Credentials
	profile Profile
}

// NewEnvelopedSigner creates a signer for the given profile.
func NewEnvelopedSigner(creds *Credentials, profile Profile) (*EnvelopedSigner, error) {
	if creds == nil || creds.PrivateKey == nil || creds.Certificate == nil {
		return nil, fiscalerr.New(fiscalerr.KindInvalidCertificate, "signing credentials are incomplete")
	}
	return &EnvelopedSigner{creds: creds, profile: profile}, nil
}

// Sign signs the element whose Id attribute equals id and places the
// Signature right after it. An empty id signs the whole document and
// appends the Signature as the last child of the root.
func (s *EnvelopedSigner) Sign(xml, id string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "document to sign is not well-formed")
	}
	root := doc.Root()
	if root == nil {
		return "", fiscalerr.New(fiscalerr.KindSigning, "document to sign has no root element")
	}

	target := root
	uri := ""
	if id != "" {
		target = findByID(root, id)
		if target == nil {
			return "", fiscalerr.Newf(fiscalerr.KindSigning, "no element with Id %q", id)
		}
		uri = "#" + id
	}

	canonical, err := canonicalize(target)
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "canonicalizing referenced element")
	}
	digest := s.profile.Hash.New()
	digest.Write(canonical)

	sig := etree.NewElement("Signature")
	sig.CreateAttr("xmlns", NamespaceXMLDSig)
	signedInfo := sig.CreateElement("SignedInfo")
	signedInfo.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgorithmC14N10)
	signedInfo.CreateElement("SignatureMethod").CreateAttr("Algorithm", s.profile.SignatureURI)
	ref := signedInfo.CreateElement("Reference")
	ref.CreateAttr("URI", uri)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgorithmEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgorithmC14N10)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", s.profile.DigestURI)
	ref.CreateElement("DigestValue").SetText(base64.StdEncoding.EncodeToString(digest.Sum(nil)))
	sigValue := sig.CreateElement("SignatureValue")
	sig.CreateElement("KeyInfo").CreateElement("X509Data").CreateElement("X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(s.creds.Certificate.Raw))

	if id == "" {
		root.AddChild(sig)
	} else {
		parent := target.Parent()
		parent.InsertChildAt(target.Index()+1, sig)
	}

	// SignedInfo is canonicalized in place so it inherits the document's
	// namespace declarations.
	canonicalInfo, err := canonicalize(signedInfo)
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "canonicalizing SignedInfo")
	}
	h := s.profile.Hash.New()
	h.Write(canonicalInfo)
	value, err := rsa.SignPKCS1v15(rand.Reader, s.creds.PrivateKey, s.profile.Hash, h.Sum(nil))
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "computing signature value")
	}
	sigValue.SetText(base64.StdEncoding.EncodeToString(value))

	out, err := doc.WriteToString()
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "serializing signed document")
	}
	return out, nil
}

// VerifyEnveloped checks every enveloped signature of a document. When cert
// is nil the certificate carried in each KeyInfo is used.
func VerifyEnveloped(xml string, cert *x509.Certificate) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return fmt.Errorf("parsing signed document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("signed document has no root element")
	}

	var sigs []*etree.Element
	collectSignatures(root, &sigs)
	if len(sigs) == 0 {
		return fmt.Errorf("no Signature element found")
	}
	for i, sig := range sigs {
		if err := verifyOne(root, sig, cert); err != nil {
			return fmt.Errorf("signature %d: %w", i+1, err)
		}
	}
	return nil
}

func collectSignatures(el *etree.Element, out *[]*etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == "Signature" && child.NamespaceURI() == NamespaceXMLDSig {
			*out = append(*out, child)
			continue
		}
		collectSignatures(child, out)
	}
}

func verifyOne(root, sig *etree.Element, cert *x509.Certificate) error {
	signedInfo := sig.SelectElement("SignedInfo")
	if signedInfo == nil {
		return fmt.Errorf("missing SignedInfo")
	}
	ref := signedInfo.SelectElement("Reference")
	method := signedInfo.SelectElement("SignatureMethod")
	if ref == nil || method == nil {
		return fmt.Errorf("incomplete SignedInfo")
	}
	digestMethod := ref.SelectElement("DigestMethod")
	digestValue := ref.SelectElement("DigestValue")
	sigValue := sig.SelectElement("SignatureValue")
	if digestMethod == nil || digestValue == nil || sigValue == nil {
		return fmt.Errorf("incomplete Signature")
	}

	sigHash, err := hashFor(method.SelectAttrValue("Algorithm", ""))
	if err != nil {
		return err
	}
	digestHash, err := hashFor(digestMethod.SelectAttrValue("Algorithm", ""))
	if err != nil {
		return err
	}

	if cert == nil {
		if cert, err = keyInfoCertificate(sig); err != nil {
			return err
		}
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate does not carry an RSA key")
	}

	canonicalInfo, err := canonicalize(signedInfo)
	if err != nil {
		return err
	}

	// enveloped-signature transform
	parent := sig.Parent()
	index := sig.Index()
	parent.RemoveChildAt(index)
	defer parent.InsertChildAt(index, sig)

	uri := ref.SelectAttrValue("URI", "")
	target := root
	if uri != "" {
		if uri[0] != '#' {
			return fmt.Errorf("unsupported reference %q", uri)
		}
		if target = findByID(root, uri[1:]); target == nil {
			return fmt.Errorf("referenced element %q not found", uri)
		}
	}
	canonical, err := canonicalize(target)
	if err != nil {
		return err
	}
	d := digestHash.New()
	d.Write(canonical)
	if base64.StdEncoding.EncodeToString(d.Sum(nil)) != digestValue.Text() {
		return fmt.Errorf("digest mismatch for reference %q", uri)
	}

	value, err := base64.StdEncoding.DecodeString(sigValue.Text())
	if err != nil {
		return fmt.Errorf("decoding SignatureValue: %w", err)
	}
	h := sigHash.New()
	h.Write(canonicalInfo)
	if err := rsa.VerifyPKCS1v15(pub, sigHash, h.Sum(nil), value); err != nil {
		return fmt.Errorf("signature value does not verify: %w", err)
	}
	return nil
}

func hashFor(uri string) (crypto.Hash, error) {
	switch uri {
	case AlgorithmSHA1, AlgorithmRSASHA1:
		return crypto.SHA1, nil
	case AlgorithmSHA256, AlgorithmRSASHA256:
		return crypto.SHA256, nil
	}
	return 0, fmt.Errorf("unsupported algorithm %q", uri)
}

func keyInfoCertificate(sig *etree.Element) (*x509.Certificate, error) {
	el := sig.FindElement("./KeyInfo/X509Data/X509Certificate")
	if el == nil {
		return nil, fmt.Errorf("no certificate in KeyInfo")
	}
	der, err := base64.StdEncoding.DecodeString(el.Text())
	if err != nil {
		return nil, fmt.Errorf("decoding KeyInfo certificate: %w", err)
	}
	return x509.ParseCertificate(der)
}
