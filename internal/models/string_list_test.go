package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStringList_DecodeLegacyString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"name": "North", "domains": " North.EDU "})
	require.NoError(t, err)

	var college College
	require.NoError(t, bson.Unmarshal(raw, &college))
	require.Equal(t, StringList{"north.edu"}, college.Domains)
}

func TestStringList_RoundTripArray(t *testing.T) {
	raw, err := bson.Marshal(College{Name: "South", Domains: StringList{"south.edu", "alumni.south.edu"}})
	require.NoError(t, err)

	var got College
	require.NoError(t, bson.Unmarshal(raw, &got))
	require.Equal(t, StringList{"south.edu", "alumni.south.edu"}, got.Domains)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{"A.edu", "a.edu ", "", "b.edu"})
	require.Equal(t, StringList{"a.edu", "b.edu"}, got)
}

func TestAccount_Clone(t *testing.T) {
	a := Account{RefreshTokens: []RefreshTokenRecord{{JTI: "1"}}}
	c := a.Clone()
	c.RefreshTokens[0].JTI = "2"

	require.Equal(t, "1", a.RefreshTokens[0].JTI, "clone must not share the refresh list")
}
