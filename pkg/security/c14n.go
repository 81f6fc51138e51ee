package security

import (
	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// Algorithm identifiers
const (
	AlgorithmC14N10      = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgorithmEnveloped   = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	AlgorithmSHA1        = "http://www.w3.org/2000/09/xmldsig#sha1"
	AlgorithmSHA256      = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgorithmRSASHA1     = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgorithmRSASHA256   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	NamespaceXMLDSig     = dsig.Namespace
	referenceIDAttribute = "Id"
)

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// canonicalize serializes el with inclusive C14N 1.0. The namespace
// declarations el inherits from its ancestors are copied onto it first, so
// the output matches what a verifier computes over the element in place.
func canonicalize(el *etree.Element) ([]byte, error) {
	c := el.Copy()
	declared := map[string]bool{}
	for _, a := range c.Attr {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if !isNamespaceDecl(a) || declared[a.FullKey()] {
				continue
			}
			declared[a.FullKey()] = true
			c.CreateAttr(a.FullKey(), a.Value)
		}
	}
	// An empty default namespace at the top of the output undeclares nothing.
	if a := c.SelectAttr("xmlns"); a != nil && a.Value == "" {
		c.RemoveAttr("xmlns")
	}
	return dsig.MakeC14N10RecCanonicalizer().Canonicalize(c)
}

// findByID returns the element whose Id attribute equals id.
func findByID(root *etree.Element, id string) *etree.Element {
	if root.SelectAttrValue(referenceIDAttribute, "") == id {
		return root
	}
	for _, child := range root.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}
