package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowMetrics/internal/domain/models"
	"FlowMetrics/internal/usecase"
)

func TestRenderTableRows(t *testing.T) {
	var buf bytes.Buffer
	meta := usecase.Meta{Symbol: "BTCUSDT", Interval: "1h", Source: "binance", DataType: usecase.DataTypeReal}
	renderTable(&buf, []models.CVDPoint{{Timestamp: 0, BuyVolume: 60, SellVolume: 40, NetVolume: 20, CVD: 20}}, meta)

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT 1h (binance)")
	assert.Contains(t, out, "1970-01-01 00:00")
	assert.Contains(t, out, "data_type=real_provider_data")
}

func TestRenderTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []struct{}{}, usecase.Meta{DataType: usecase.DataTypeNone, Note: usecase.NoteInsufficientData})
	assert.Contains(t, buf.String(), "no data available")
	assert.Contains(t, buf.String(), "note=insufficient_candles")
}

func TestWriteJSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []struct{}{}, usecase.Meta{Symbol: "ETHUSDT", DataType: usecase.DataTypeNone}))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.Equal(t, []interface{}{}, got["data"])
	meta := got["meta"].(map[string]interface{})
	assert.Equal(t, "no_data_available", meta["data_type"])
}

func TestQueryCommandRejectsUnknownOperation(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"query", "nope", "--symbol", "BTCUSDT"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
