package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomkp/card-spy-sub001/pkg/atr"
	"github.com/tomkp/card-spy-sub001/pkg/hexutil"
)

func TestDecodeICCID(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "Standard 20 digits",
			data: []byte{0x98, 0x96, 0x10, 0x32, 0x54, 0x76, 0x98, 0x10, 0x32, 0x54},
			want: "89690123456789012345",
		},
		{
			name: "Odd length with F padding",
			data: []byte{0x98, 0x96, 0x10, 0x32, 0xF4},
			want: "896901234",
		},
		{
			name: "Empty",
			data: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeICCID(tt.data))
		})
	}
}

func TestSIMDetect(t *testing.T) {
	h := NewSIM()
	simATR := hexutil.ParseHexInput("3B 9F 95 80 1F C7 80 31 E0 73 FE 21 1B 64 07 68 9A 00 82 90 00 B1")

	t.Run("Live card with matching ATR", func(t *testing.T) {
		client, _ := newScriptedClient(map[string][]byte{
			"A0A40000023F00": {0x9F, 0x16}, // GSM signals data ready with 9F
		})
		res := h.Detect(atr.Parse(simATR), client)
		require.True(t, res.Detected)
		assert.Equal(t, confidenceAID, res.Confidence)
	})

	t.Run("Live card, unknown ATR", func(t *testing.T) {
		client, _ := newScriptedClient(map[string][]byte{
			"A0A40000023F00": {0x9F, 0x16},
		})
		res := h.Detect(nil, client)
		require.True(t, res.Detected)
		assert.Equal(t, 90, res.Confidence)
	})

	t.Run("ATR only", func(t *testing.T) {
		res := h.Detect(atr.Parse(simATR), nil)
		require.True(t, res.Detected)
		assert.Equal(t, confidenceATR, res.Confidence)
	})

	t.Run("Neither", func(t *testing.T) {
		client, _ := newScriptedClient(nil)
		assert.False(t, h.Detect(nil, client).Detected)
	})
}

func TestSIMInterrogate(t *testing.T) {
	client, _ := newScriptedClient(map[string][]byte{
		"A0A40000023F00": {0x9F, 0x16},
		"A0A40000022FE2": {0x9F, 0x0F},
		"A0B000000A": {
			0x98, 0x96, 0x10, 0x32, 0x54, 0x76, 0x98, 0x10, 0x32, 0x54,
			0x90, 0x00,
		},
	})

	report, err := NewSIM().Interrogate(client)
	require.NoError(t, err)
	assert.Equal(t, "89690123456789012345", report.Fields["iccid"])
}

func TestSIMExecuteSelectFile(t *testing.T) {
	client, card := newScriptedClient(map[string][]byte{
		"A0A40000027F20": {0x9F, 0x16},
	})
	h := NewSIM()

	resp, err := h.Execute(client, "select_file", Params{"file_id": "7F20"})
	require.NoError(t, err)
	assert.Equal(t, byte(0x9F), resp.Status.SW1())
	assert.Equal(t, "A0A40000027F20", card.log[len(card.log)-1])

	_, err = h.Execute(client, "select_file", Params{"file_id": "7F"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}
