package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/api"
)

func TestWritePayment_JSONMatchesAPI(t *testing.T) {
	// GIVEN: A calculated payment
	var out bytes.Buffer

	// WHEN: Printing it with --json
	require.NoError(t, writePayment(&out, samplePayment(), true))

	// THEN: The document uses the API's snake_case keys
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "124.2", doc["final_payment"])
	assert.Equal(t, "inst-ana", doc["instructor_id"])
	assert.NotContains(t, doc, "FinalPayment")
}

func TestSavedCalculationMatchesAPI(t *testing.T) {
	// GIVEN: The row --save stores for a payment
	record, err := api.PaymentRecord(samplePayment())
	require.NoError(t, err)

	// WHEN: Decoding its calculation JSON as an API response
	var dto api.PaymentCalculationDTO
	require.NoError(t, json.Unmarshal([]byte(record.CalculationJSON), &dto))

	// THEN: The amounts round-trip under the same keys
	assert.Equal(t, "124.2", dto.FinalPayment.String())
	assert.Equal(t, "Ana Torres", dto.InstructorName)
	assert.Contains(t, record.CalculationJSON, `"final_payment":"124.2"`)
}

func TestWritePayment_Text(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, writePayment(&out, samplePayment(), false))

	assert.Contains(t, out.String(), "S/ 124.20")
}
