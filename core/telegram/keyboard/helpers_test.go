package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsOnePerRow(t *testing.T) {
	markup := InlineButtons([]InlineBtn{
		{Text: "Remove warn", Unique: "rm_warn", Data: "42"},
		{Text: "Other", Unique: "other", Data: "x"},
	})
	require.Len(t, markup.InlineKeyboard, 2)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Remove warn", btn.Text)
	assert.Equal(t, "rm_warn", btn.Unique)
	assert.Equal(t, "42", btn.Data)
}
