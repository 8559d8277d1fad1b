package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Parse_Plain_Terms(t *testing.T) {
	query := ParseQuery("missing parcel")

	require.Equal(t, "missing parcel", query.Terms)
	require.Empty(t, query.Conversation)
	require.Equal(t, defaultLimit, query.Limit)
}

func Test_Parse_Strips_The_Leading_Command(t *testing.T) {
	query := ParseQuery(`/find "missing parcel" --conv 9f2c --limit 5`)

	require.Equal(t, "missing parcel", query.Terms)
	require.Equal(t, "9f2c", query.Conversation)
	require.Equal(t, 5, query.Limit)
}

func Test_Parse_Ignores_A_Broken_Limit(t *testing.T) {
	for _, raw := range []string{"refund --limit abc", "refund --limit -3", "refund --limit"} {
		query := ParseQuery(raw)
		require.Equal(t, defaultLimit, query.Limit, raw)
	}
}

func Test_Parse_Keeps_The_Raw_Input(t *testing.T) {
	raw := "where is order 4812 --conv abc"
	require.Equal(t, raw, ParseQuery(raw).RawInput)
}
