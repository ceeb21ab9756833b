package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var draftNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func readyDraft() *BookingDraft {
	d := NewBookingDraft(GuestOwner(NewGuestToken()), draftNow, time.Hour)
	d.StepData = fullStepData()
	d.CurrentStep = StepPayment
	return d
}

func TestBookingDraft_ExpiredDraftRejectsMerge(t *testing.T) {
	d := readyDraft()
	later := draftNow.Add(61 * time.Minute)

	_, err := d.Merge(&PaymentStep{PromoCode: "SAVE10"}, later, time.Hour)
	assert.ErrorIs(t, err, ErrDraftExpired)
	assert.Equal(t, "SAVE10", d.PromoCode(), "unchanged")
	assert.Equal(t, DraftStatusExpired, d.State(later))
}

func TestBookingDraft_CommittedDraftRejectsMerge(t *testing.T) {
	d := readyDraft()
	d.MarkCommitted(uuid.New(), draftNow)

	_, err := d.Merge(&PaymentStep{}, draftNow, time.Hour)
	assert.ErrorIs(t, err, ErrDraftAlreadyCommitted)
	assert.False(t, d.IsExpired(draftNow.Add(48*time.Hour)), "committed drafts do not expire")
}

func TestBookingDraft_ServicesChangeClearsProvider(t *testing.T) {
	d := readyDraft()
	ids := d.StepData.Services.ServiceIDs

	res, err := d.Merge(&ServicesStep{ServiceIDs: ids[:1], CollectionType: CollectionHome}, draftNow, time.Hour)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, []int{StepProvider}, res.Cleared)
	assert.Nil(t, d.StepData.Provider)
	assert.NotNil(t, d.StepData.Patient)
	assert.Equal(t, StepServices, d.CurrentStep)
	assert.ErrorIs(t, d.CommitReady(), ErrDraftIncomplete)
}

func TestBookingDraft_SameServicesKeepProvider(t *testing.T) {
	d := readyDraft()
	ids := d.StepData.Services.ServiceIDs
	reordered := []uuid.UUID{ids[1], ids[0]}

	res, err := d.Merge(&ServicesStep{ServiceIDs: reordered, CollectionType: CollectionHome}, draftNow, time.Hour)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, res.Cleared)
	assert.NotNil(t, d.StepData.Provider)
	assert.NoError(t, d.CommitReady())
}

func TestBookingDraft_CollectionTypeChangeClearsProvider(t *testing.T) {
	d := readyDraft()

	res, err := d.Merge(&ServicesStep{ServiceIDs: d.StepData.Services.ServiceIDs, CollectionType: CollectionClinic}, draftNow, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []int{StepProvider}, res.Cleared)
}

func TestBookingDraft_MergeSlidesExpiry(t *testing.T) {
	d := readyDraft()
	later := draftNow.Add(30 * time.Minute)

	_, err := d.Merge(&PatientStep{FullName: "Jane Patient", DateOfBirth: "1990-05-01", Email: "jane@example.com", Phone: "07700900123"}, later, time.Hour)
	require.NoError(t, err)
	assert.True(t, later.Add(time.Hour).Equal(d.ExpiresAt))
}

func TestBookingDraft_HasIntentFor(t *testing.T) {
	d := readyDraft()
	assert.False(t, d.HasIntentFor(12600))

	id, amount := "pi_1", int64(12600)
	d.PaymentIntentID, d.PaymentIntentAmount = &id, &amount
	assert.True(t, d.HasIntentFor(12600))
	assert.False(t, d.HasIntentFor(11600))
}
