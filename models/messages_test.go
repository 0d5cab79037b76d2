package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigningBytesFieldBoundaries(t *testing.T) {
	// Same concatenation, different field split: the signing bytes must
	// differ, or one locality could replay another's attestation.
	a := CasterOutput{LocalityID: "ab", Product: []byte("cd")}
	b := CasterOutput{LocalityID: "abc", Product: []byte("d")}
	assert.NotEqual(t, a.SigningBytes(), b.SigningBytes())

	same := CasterOutput{LocalityID: "ab", Product: []byte("cd")}
	assert.Equal(t, a.SigningBytes(), same.SigningBytes())
}

func TestSigningBytesCoversLocalityAndProduct(t *testing.T) {
	base := CasterOutput{LocalityID: "east", Product: []byte{1, 2, 3}}

	otherLocality := base
	otherLocality.LocalityID = "west"
	assert.NotEqual(t, base.SigningBytes(), otherLocality.SigningBytes())

	otherProduct := base
	otherProduct.Product = []byte{1, 2, 4}
	assert.NotEqual(t, base.SigningBytes(), otherProduct.SigningBytes())
}
