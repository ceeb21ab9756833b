package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hisiddique/bloodathome/internal/geo"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrUnknownStep               = errors.New("unknown draft step")
	ErrInvalidStepPayload        = errors.New("invalid step payload")
	ErrUnsupportedStepDataFormat = errors.New("unsupported step data version")
)

// Draft steps, in wizard order
const (
	StepServices = 1
	StepLocation = 2
	StepProvider = 3
	StepPatient  = 4
	StepPayment  = 5

	StepCount = StepPayment
)

// AffectsPrice reports whether a change at step can change the quote. A new
// location clears the provider choice, so it counts.
func AffectsPrice(step int) bool {
	return step >= StepServices && step <= StepCount && step != StepPatient
}

const (
	stepDataVersion = 1
	dateLayout      = "2006-01-02"
)

var stepValidator = validator.New()

// StepPayload is the data collected at one draft step
type StepPayload interface {
	Step() int
	// Validate checks struct tags and the rules tags cannot express.
	Validate() error
}

// ServicesStep is step 1: what to book and where the sample is taken
type ServicesStep struct {
	ServiceIDs     []uuid.UUID    `json:"service_ids" validate:"required,min=1,max=20"`
	CollectionType CollectionType `json:"collection_type" validate:"required,oneof=home clinic"`
}

func (s *ServicesStep) Step() int { return StepServices }

func (s *ServicesStep) Validate() error {
	if err := stepValidator.Struct(s); err != nil {
		return wrapStepErr(err)
	}
	seen := make(map[uuid.UUID]struct{}, len(s.ServiceIDs))
	ids := s.ServiceIDs[:0]
	for _, id := range s.ServiceIDs {
		if id == uuid.Nil {
			return fmt.Errorf("%w: service id must not be empty", ErrInvalidStepPayload)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	s.ServiceIDs = ids
	return nil
}

// SameSelection reports whether o selects the same set of services and collection type.
func (s *ServicesStep) SameSelection(o *ServicesStep) bool {
	if o == nil || s.CollectionType != o.CollectionType || len(s.ServiceIDs) != len(o.ServiceIDs) {
		return false
	}
	a := sortedIDs(s.ServiceIDs)
	b := sortedIDs(o.ServiceIDs)
	return slices.Equal(a, b)
}

// LocationStep is step 2: where and when. Lat/Lng may be omitted when a
// postcode is given; they are then filled in by geocoding.
type LocationStep struct {
	Postcode    string   `json:"postcode,omitempty" validate:"omitempty,max=10"`
	AddressLine string   `json:"address_line,omitempty" validate:"max=255"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
}

func (s *LocationStep) Step() int { return StepLocation }

func (s *LocationStep) Validate() error {
	if err := stepValidator.Struct(s); err != nil {
		return wrapStepErr(err)
	}
	s.Postcode = NormalizePostcode(s.Postcode)
	if (s.Lat == nil) != (s.Lng == nil) {
		return fmt.Errorf("%w: lat and lng must be given together", ErrInvalidStepPayload)
	}
	if s.Lat == nil && s.Postcode == "" {
		return fmt.Errorf("%w: postcode or coordinates required", ErrInvalidStepPayload)
	}
	if s.Lat != nil {
		if err := (geo.Point{Lat: *s.Lat, Lng: *s.Lng}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Point returns the resolved coordinates, if any.
func (s *LocationStep) Point() (geo.Point, bool) {
	if s == nil || s.Lat == nil || s.Lng == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *s.Lat, Lng: *s.Lng}, true
}

func (s *LocationStep) SetPoint(p geo.Point) {
	lat, lng := p.Lat, p.Lng
	s.Lat = &lat
	s.Lng = &lng
}

func (s *LocationStep) ParsedDate() time.Time {
	d, _ := time.Parse(dateLayout, s.Date)
	return d
}

// SameLocation compares the inputs that affect matching.
func (s *LocationStep) SameLocation(o *LocationStep) bool {
	if o == nil || s.Date != o.Date || s.Postcode != o.Postcode {
		return false
	}
	p1, ok1 := s.Point()
	p2, ok2 := o.Point()
	return ok1 == ok2 && p1 == p2
}

// ProviderStep is step 3: chosen provider and slot
type ProviderStep struct {
	ProviderID uuid.UUID `json:"provider_id" validate:"required"`
	SlotStart  time.Time `json:"slot_start" validate:"required"`
	SlotEnd    time.Time `json:"slot_end" validate:"required,gtfield=SlotStart"`
}

func (s *ProviderStep) Step() int { return StepProvider }

func (s *ProviderStep) Validate() error {
	if err := stepValidator.Struct(s); err != nil {
		return wrapStepErr(err)
	}
	if s.ProviderID == uuid.Nil {
		return fmt.Errorf("%w: provider_id is required", ErrInvalidStepPayload)
	}
	return nil
}

func (s *ProviderStep) Equal(o *ProviderStep) bool {
	return o != nil && s.ProviderID == o.ProviderID && s.SlotStart.Equal(o.SlotStart) && s.SlotEnd.Equal(o.SlotEnd)
}

// PatientStep is step 4: who the sample is taken from
type PatientStep struct {
	FullName    string `json:"full_name" validate:"required,min=2,max=255"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Phone       string `json:"phone" validate:"required,min=7,max=20"`
	Notes       string `json:"notes,omitempty" validate:"max=1000"`
}

func (s *PatientStep) Step() int { return StepPatient }

func (s *PatientStep) Validate() error {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	if err := stepValidator.Struct(s); err != nil {
		return wrapStepErr(err)
	}
	return nil
}

// PaymentStep is step 5: optional promo code
type PaymentStep struct {
	PromoCode string `json:"promo_code,omitempty" validate:"omitempty,max=50"`
}

func (s *PaymentStep) Step() int { return StepPayment }

func (s *PaymentStep) Validate() error {
	s.PromoCode = strings.ToUpper(strings.TrimSpace(s.PromoCode))
	if err := stepValidator.Struct(s); err != nil {
		return wrapStepErr(err)
	}
	return nil
}

// DecodeStepPayload parses the raw payload for the given step index.
func DecodeStepPayload(step int, raw []byte) (StepPayload, error) {
	var p StepPayload
	switch step {
	case StepServices:
		p = &ServicesStep{}
	case StepLocation:
		p = &LocationStep{}
	case StepProvider:
		p = &ProviderStep{}
	case StepPatient:
		p = &PatientStep{}
	case StepPayment:
		p = &PaymentStep{}
	default:
		return nil, ErrUnknownStep
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStepPayload, err)
	}
	return p, nil
}

// StepData holds the per-step payloads of a draft. It is stored as a JSON
// object keyed by step index with a format version under "v".
type StepData struct {
	Services *ServicesStep
	Location *LocationStep
	Provider *ProviderStep
	Patient  *PatientStep
	Payment  *PaymentStep
}

// Has reports whether the step has data
func (d *StepData) Has(step int) bool {
	switch step {
	case StepServices:
		return d.Services != nil
	case StepLocation:
		return d.Location != nil
	case StepProvider:
		return d.Provider != nil
	case StepPatient:
		return d.Patient != nil
	case StepPayment:
		return d.Payment != nil
	}
	return false
}

// Completed lists the steps holding data, in order.
func (d *StepData) Completed() []int {
	var steps []int
	for s := StepServices; s <= StepCount; s++ {
		if d.Has(s) {
			steps = append(steps, s)
		}
	}
	return steps
}

func (d StepData) MarshalJSON() ([]byte, error) {
	m := map[string]any{"v": stepDataVersion}
	if d.Services != nil {
		m[strconv.Itoa(StepServices)] = d.Services
	}
	if d.Location != nil {
		m[strconv.Itoa(StepLocation)] = d.Location
	}
	if d.Provider != nil {
		m[strconv.Itoa(StepProvider)] = d.Provider
	}
	if d.Patient != nil {
		m[strconv.Itoa(StepPatient)] = d.Patient
	}
	if d.Payment != nil {
		m[strconv.Itoa(StepPayment)] = d.Payment
	}
	return json.Marshal(m)
}

// UnmarshalJSON ignores keys it does not know so older readers survive newer steps.
func (d *StepData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["v"]; ok {
		var version int
		if err := json.Unmarshal(v, &version); err != nil || version > stepDataVersion {
			return ErrUnsupportedStepDataFormat
		}
	}
	*d = StepData{}
	for key, val := range raw {
		step, err := strconv.Atoi(key)
		if err != nil || step < StepServices || step > StepCount {
			continue
		}
		p, err := DecodeStepPayload(step, val)
		if err != nil {
			return err
		}
		d.set(p)
	}
	return nil
}

// Value returns json value, implement driver.Valuer interface
func (d StepData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan scan value into StepData, implements sql.Scanner interface
func (d *StepData) Scan(value interface{}) error {
	if value == nil {
		*d = StepData{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal step data value:", value))
	}
}

func (d *StepData) set(p StepPayload) {
	switch v := p.(type) {
	case *ServicesStep:
		d.Services = v
	case *LocationStep:
		d.Location = v
	case *ProviderStep:
		d.Provider = v
	case *PatientStep:
		d.Patient = v
	case *PaymentStep:
		d.Payment = v
	}
}

// NormalizePostcode upper-cases and collapses internal whitespace.
func NormalizePostcode(pc string) string {
	return strings.ToUpper(strings.Join(strings.Fields(pc), " "))
}

func wrapStepErr(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidStepPayload, err)
}

func sortedIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	slices.Sort(out)
	return out
}
