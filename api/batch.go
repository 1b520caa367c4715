/*
batch.go - Period payment runs over many instructors

PURPOSE:
  Calculates one period for a list of instructors and records a status per
  instructor. One failing instructor never aborts the run.

STATUS MAPPING:
  calculated  payment computed (and persisted when Payments is set)
  skipped     payroll.NoClassesError: nothing was taught in the period
  error       any other error, including persistence failures

ORDERING:
  Instructor IDs are de-duplicated keeping first occurrence; items come
  back in that order. Instructors run one after another, so a category
  upsert never races with another run of the same triple.

SEE ALSO:
  - handlers.go: POST /api/payments/batch
  - scheduler.go: Periodic recalculation
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

type BatchStatus string

const (
	BatchCalculated BatchStatus = "calculated"
	BatchSkipped    BatchStatus = "skipped"
	BatchError      BatchStatus = "error"
)

// PaymentCalculator computes one instructor's payment.
type PaymentCalculator interface {
	CalculateInstructorPayment(ctx context.Context, instructorID payroll.InstructorID, periodID payroll.PeriodID, tenantID payroll.TenantID) (*payroll.PaymentCalculationData, error)
}

// PaymentRecorder persists calculated payments.
type PaymentRecorder interface {
	SavePayment(ctx context.Context, p sqlite.PaymentRecord) error
}

// BatchItem is the outcome for one instructor.
type BatchItem struct {
	InstructorID payroll.InstructorID
	Status       BatchStatus
	Message      string
	Payment      *payroll.PaymentCalculationData
}

// BatchResult is the outcome of one run.
type BatchResult struct {
	RunID      string
	TenantID   payroll.TenantID
	PeriodID   payroll.PeriodID
	Items      []BatchItem
	Calculated int
	Skipped    int
	Failed     int
}

// BatchRunner runs period calculations. Payments may be nil to calculate
// without persisting.
type BatchRunner struct {
	Calculator PaymentCalculator
	Payments   PaymentRecorder
}

func NewBatchRunner(calc PaymentCalculator, payments PaymentRecorder) *BatchRunner {
	return &BatchRunner{Calculator: calc, Payments: payments}
}

// Run calculates the period for every instructor. The returned error is
// non-nil only when ctx is cancelled; the result then holds the items
// finished so far.
func (b *BatchRunner) Run(ctx context.Context, tenantID payroll.TenantID, periodID payroll.PeriodID, instructorIDs []payroll.InstructorID) (*BatchResult, error) {
	result := &BatchResult{
		RunID:    uuid.NewString(),
		TenantID: tenantID,
		PeriodID: periodID,
		Items:    []BatchItem{},
	}

	for _, id := range dedupe(instructorIDs) {
		if err := ctx.Err(); err != nil {
			log.Printf("[Batch] Run %s cancelled after %d instructors: %v", result.RunID, len(result.Items), err)
			return result, err
		}

		item := b.runOne(ctx, tenantID, periodID, id)
		switch item.Status {
		case BatchCalculated:
			result.Calculated++
		case BatchSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	log.Printf("[Batch] Run %s for period %s: %d calculated, %d skipped, %d failed",
		result.RunID, periodID, result.Calculated, result.Skipped, result.Failed)
	return result, nil
}

func (b *BatchRunner) runOne(ctx context.Context, tenantID payroll.TenantID, periodID payroll.PeriodID, id payroll.InstructorID) BatchItem {
	data, err := b.Calculator.CalculateInstructorPayment(ctx, id, periodID, tenantID)
	if err != nil {
		if payroll.IsSkippable(err) {
			return BatchItem{InstructorID: id, Status: BatchSkipped, Message: err.Error()}
		}
		log.Printf("[Batch] Instructor %s: %v", id, err)
		return BatchItem{InstructorID: id, Status: BatchError, Message: err.Error()}
	}

	if b.Payments != nil {
		record, err := PaymentRecord(data)
		if err != nil {
			log.Printf("[Batch] Instructor %s: %v", id, err)
			return BatchItem{InstructorID: id, Status: BatchError, Message: err.Error(), Payment: data}
		}
		if err := b.Payments.SavePayment(ctx, record); err != nil {
			log.Printf("[Batch] Instructor %s: %v", id, err)
			return BatchItem{InstructorID: id, Status: BatchError, Message: err.Error(), Payment: data}
		}
	}
	return BatchItem{InstructorID: id, Status: BatchCalculated, Payment: data}
}

// PaymentRecord builds the stored row of a calculation. CalculationJSON holds
// the same document the API returns.
func PaymentRecord(d *payroll.PaymentCalculationData) (sqlite.PaymentRecord, error) {
	calculation, err := json.Marshal(ToPaymentCalculationDTO(d))
	if err != nil {
		return sqlite.PaymentRecord{}, fmt.Errorf("encode calculation of %s: %w", d.InstructorID, err)
	}
	return sqlite.PaymentRecord{
		ID:                     uuid.NewString(),
		InstructorID:           d.InstructorID,
		PeriodID:               d.PeriodID,
		TenantID:               d.TenantID,
		BaseAmount:             d.BaseAmount,
		Bonuses:                d.Bonuses.Total,
		Retention:              d.Retention,
		PenaltyDiscountPercent: d.Penalties.DiscountPercent,
		FinalPayment:           d.FinalPayment,
		Status:                 sqlite.PaymentCalculated,
		CalculationJSON:        string(calculation),
	}, nil
}

func dedupe(ids []payroll.InstructorID) []payroll.InstructorID {
	seen := make(map[payroll.InstructorID]struct{}, len(ids))
	out := make([]payroll.InstructorID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toBatchResultDTO(r *BatchResult) BatchResultDTO {
	dto := BatchResultDTO{
		RunID:      r.RunID,
		PeriodID:   string(r.PeriodID),
		Calculated: r.Calculated,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Items:      make([]BatchItemDTO, len(r.Items)),
	}
	for i, item := range r.Items {
		dto.Items[i] = BatchItemDTO{
			InstructorID: string(item.InstructorID),
			Status:       string(item.Status),
			Message:      item.Message,
		}
		if item.Status == BatchCalculated && item.Payment != nil {
			final := item.Payment.FinalPayment
			dto.Items[i].FinalPayment = &final
		}
	}
	return dto
}
