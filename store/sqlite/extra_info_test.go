package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/studio-payroll/payroll"
)

func TestSQLite_CorruptExtraInfoIsAnError(t *testing.T) {
	// GIVEN: An instructor whose stored flags are not valid JSON
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	require.NoError(t, store.SaveInstructor(ctx, payroll.Instructor{ID: "ana", TenantID: "studio", Name: "Ana Torres"}))
	_, err = store.db.ExecContext(ctx,
		"UPDATE instructors SET extra_info_json = ? WHERE id = ?", `{"meetsGuidelines": "nope"`, "ana")
	require.NoError(t, err)

	// WHEN: Reading the flags directly
	_, err = store.FetchInstructorExtraInfo(ctx, "ana", "studio")

	// THEN: The row is reported instead of silently defaulting
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instructor ana has invalid extra info")

	// AND: Every other read path surfaces it too
	_, err = store.ListInstructors(ctx, "studio")
	assert.ErrorContains(t, err, "invalid extra info")

	_, err = store.FetchInstructorGraph(ctx, "ana", "2026-10", "studio")
	assert.ErrorContains(t, err, "invalid extra info")
}

func TestParseExtraInfo_EmptyIsDefault(t *testing.T) {
	extra, err := parseExtraInfo(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, extra.MeetsGuidelines)
	assert.Nil(t, extra.EventParticipation)
}
