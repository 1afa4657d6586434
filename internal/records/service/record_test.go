package service

import (
	"context"
	"errors"
	bookingservice "sicakap/internal/booking/service"
	"sicakap/internal/records/validator"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
	"sicakap/pkg/metrics"
	"sicakap/pkg/model"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	createFunc func(ctx context.Context, record *model.Record) (int, error)
	listFunc   func(ctx context.Context, filter model.RecordFilter) ([]model.Record, error)
	updateFunc func(ctx context.Context, id int, record *model.Record) error

	created []model.Record
	calls   int
}

func (m *mockStore) Create(ctx context.Context, record *model.Record) (int, error) {
	m.calls++
	m.created = append(m.created, *record)
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	return 77, nil
}

func (m *mockStore) List(ctx context.Context, filter model.RecordFilter) ([]model.Record, error) {
	m.calls++
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockStore) GetByID(ctx context.Context, id int) (*model.Record, error) {
	m.calls++
	return &model.Record{ID: id}, nil
}

func (m *mockStore) Update(ctx context.Context, id int, record *model.Record) error {
	m.calls++
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, record)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id int) error {
	m.calls++
	return nil
}

type mockDesk struct {
	held *bookingservice.Booking

	checkTicketFunc  func(ticket string) (*bookingservice.Booking, error)
	ensureBookedFunc func(ctx context.Context, date model.SystemDate) (*bookingservice.Booking, error)
	advanceFunc      func(ctx context.Context, number int) (*bookingservice.AdvanceResult, error)

	calls  []string
	claims int
}

func (m *mockDesk) Held() *bookingservice.Booking {
	return m.held
}

func (m *mockDesk) CheckTicket(ticket string) (*bookingservice.Booking, error) {
	m.calls = append(m.calls, "check_ticket")
	if m.checkTicketFunc != nil {
		return m.checkTicketFunc(ticket)
	}
	return m.held, nil
}

func (m *mockDesk) EnsureBooked(ctx context.Context, date model.SystemDate) (*bookingservice.Booking, error) {
	m.calls = append(m.calls, "ensure_booked")
	if m.ensureBookedFunc != nil {
		return m.ensureBookedFunc(ctx, date)
	}
	return &bookingservice.Booking{Number: 1, Date: date}, nil
}

func (m *mockDesk) Claim() bookingservice.Claim {
	m.claims++
	return bookingservice.Claim{}
}

func (m *mockDesk) ConfirmAndAdvance(ctx context.Context, number int, claim bookingservice.Claim) (*bookingservice.AdvanceResult, error) {
	m.calls = append(m.calls, "confirm_and_advance")
	if m.advanceFunc != nil {
		return m.advanceFunc(ctx, number)
	}
	return &bookingservice.AdvanceResult{
		Confirmed: number,
		Next:      &bookingservice.Booking{Number: number + 1, Date: "2025-08-10"},
	}, nil
}

type mockTemplates struct {
	calls int
}

func (m *mockTemplates) List(ctx context.Context, serviceCode string) ([]model.Redaksi, error) {
	m.calls++
	return []model.Redaksi{{ServiceCode: serviceCode}}, nil
}

type recordFixture struct {
	store     *mockStore
	desk      *mockDesk
	templates *mockTemplates
	metrics   *metrics.Metrics
	service   RecordService
}

func newRecordFixture() *recordFixture {
	log := logger.Discard()
	f := &recordFixture{
		store:     &mockStore{},
		desk:      &mockDesk{},
		templates: &mockTemplates{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	f.service = NewRecordService(f.store, f.desk, f.templates, validator.NewRecordValidator(log), f.metrics, log)
	return f
}

func submitRequest(serviceCode string) *SubmitRequest {
	return &SubmitRequest{Record: model.Record{
		RegDate:     "2025-08-10",
		ServiceCode: serviceCode,
		NIK:         "3201 0101 0101 0001",
		Name:        "  siti   aminah ",
		PhoneNumber: "081234567890",
		Email:       "Siti@Example.com",
		NoSKBWNI:    "SKBWNI/001",
		NoSKPWNI:    "SKPWNI/001",
	}}
}

func TestSubmit_RejectsMissingDocumentWithoutNetworkCalls(t *testing.T) {
	f := newRecordFixture()

	req := submitRequest(model.ServiceCancelMoveOut)
	req.NoSKBWNI = ""

	_, err := f.service.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	fields := apperrors.AsAppError(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "no_skbwni")
	assert.Empty(t, f.desk.calls)
	assert.Zero(t, f.store.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeInvalid)))
}

func TestSubmit_BooksWhenRegNumberIsEmpty(t *testing.T) {
	f := newRecordFixture()
	f.desk.ensureBookedFunc = func(ctx context.Context, date model.SystemDate) (*bookingservice.Booking, error) {
		assert.Equal(t, model.SystemDate("2025-08-10"), date)
		return &bookingservice.Booking{Number: 601, Date: date}, nil
	}

	result, err := f.service.Submit(context.Background(), submitRequest(model.ServiceCancelMoveOut))
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure_booked", "confirm_and_advance"}, f.desk.calls)
	require.Len(t, f.store.created, 1)
	assert.Equal(t, 601, f.store.created[0].RegNumber)
	assert.Equal(t, "siti aminah", f.store.created[0].Name)
	assert.Equal(t, "+6281234567890", f.store.created[0].PhoneNumber)
	assert.Equal(t, model.StatusInProgress, f.store.created[0].Status)

	assert.Equal(t, 77, result.ID)
	assert.Equal(t, 601, result.RegNumber)
	assert.Equal(t, "20250810_601_BP", result.ArchiveCode)
	assert.True(t, result.Confirmed)
	require.NotNil(t, result.Next)
	assert.Equal(t, 602, result.Next.Number)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeSaved)))
}

func TestSubmit_UsesHeldNumberForSameDate(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 42, Date: "2025-08-10"}

	result, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.NoError(t, err)

	assert.Equal(t, 42, result.RegNumber)
	assert.Equal(t, []string{"confirm_and_advance"}, f.desk.calls)
}

func TestSubmit_SkipsHeldNumberAwaitingConfirm(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 42, Date: "2025-08-10", PendingConfirm: true}
	f.desk.ensureBookedFunc = func(ctx context.Context, date model.SystemDate) (*bookingservice.Booking, error) {
		return &bookingservice.Booking{Number: 43, Date: date}, nil
	}

	result, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.NoError(t, err)

	assert.Equal(t, 43, result.RegNumber)
	assert.Equal(t, []string{"ensure_booked", "confirm_and_advance"}, f.desk.calls)
}

func TestSubmit_ClaimsBookingContextBeforeSaving(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 42, Date: "2025-08-10"}
	f.store.createFunc = func(ctx context.Context, record *model.Record) (int, error) {
		assert.Equal(t, 1, f.desk.claims)
		return 78, nil
	}

	_, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.NoError(t, err)
	assert.Equal(t, 1, f.desk.claims)
}

func TestSubmit_KeepsTypedRegNumber(t *testing.T) {
	f := newRecordFixture()

	req := submitRequest(model.ServiceMoveOut)
	req.RegNumber = 900

	result, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 900, result.RegNumber)
	assert.Equal(t, []string{"confirm_and_advance"}, f.desk.calls)
}

func TestSubmit_StaleTicketStopsBeforePersist(t *testing.T) {
	tests := []struct {
		name   string
		held   *bookingservice.Booking
		check  func(ticket string) (*bookingservice.Booking, error)
		number int
	}{
		{
			name: "ticket no longer held",
			check: func(ticket string) (*bookingservice.Booking, error) {
				return nil, apperrors.StaleState("ticket does not match", nil)
			},
		},
		{
			name:   "typed number differs from ticket",
			held:   &bookingservice.Booking{Number: 5, Date: "2025-08-10"},
			number: 6,
		},
		{
			name: "ticket for another date",
			held: &bookingservice.Booking{Number: 5, Date: "2025-08-11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecordFixture()
			f.desk.held = tt.held
			f.desk.checkTicketFunc = tt.check

			req := submitRequest(model.ServiceMoveOut)
			req.RegNumber = tt.number
			req.Ticket = "sealed"

			_, err := f.service.Submit(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeStaleState))
			assert.Zero(t, f.store.calls)
			assert.NotContains(t, f.desk.calls, "confirm_and_advance")
		})
	}
}

func TestSubmit_TicketFillsRegNumber(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 12, Date: "2025-08-10"}

	req := submitRequest(model.ServiceMoveOut)
	req.Ticket = "sealed"

	result, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 12, result.RegNumber)
	assert.Equal(t, []string{"check_ticket", "confirm_and_advance"}, f.desk.calls)
}

func TestSubmit_PersistFailureDoesNotConfirm(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 3, Date: "2025-08-10"}
	f.store.createFunc = func(ctx context.Context, record *model.Record) (int, error) {
		return 0, apperrors.NetworkFailure("create-pencatatan", errors.New("refused"))
	}

	_, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetworkFailure))
	assert.Empty(t, f.desk.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(outcomeFailed)))
}

func TestSubmit_ReportsExhaustionAfterSave(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 999, Date: "2025-08-10"}
	f.desk.advanceFunc = func(ctx context.Context, number int) (*bookingservice.AdvanceResult, error) {
		return &bookingservice.AdvanceResult{
			Confirmed: number,
			NextErr:   apperrors.AllocationExhausted("2025-08-10", "Nomor habis"),
		}, nil
	}

	result, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Nil(t, result.Next)
	assert.True(t, result.NumbersExhausted)
	assert.Equal(t, apperrors.CodeAllocationExhausted, result.NextErrorCode)
}

func TestSubmit_ConfirmFailureIsReported(t *testing.T) {
	f := newRecordFixture()
	f.desk.held = &bookingservice.Booking{Number: 8, Date: "2025-08-10"}
	f.desk.advanceFunc = func(ctx context.Context, number int) (*bookingservice.AdvanceResult, error) {
		return &bookingservice.AdvanceResult{
			ConfirmErr: apperrors.NetworkFailure("confirm", errors.New("reset")),
		}, nil
	}

	result, err := f.service.Submit(context.Background(), submitRequest(model.ServiceMoveOut))
	require.NoError(t, err)
	assert.Equal(t, 77, result.ID)
	assert.False(t, result.Confirmed)
	assert.True(t, result.ConfirmPending)
	assert.NotEmpty(t, result.ConfirmError)
	assert.Nil(t, result.Next)
}

func TestUpdate_ValidatesBeforePersist(t *testing.T) {
	f := newRecordFixture()

	record := submitRequest(model.ServiceMoveIn).Record
	err := f.service.Update(context.Background(), 4, &record)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Zero(t, f.store.calls)

	var updatedID int
	f.store.updateFunc = func(ctx context.Context, id int, record *model.Record) error {
		updatedID = id
		return nil
	}
	record.NoSKDWNI = "SKDWNI/9"
	record.NoKK = "3201010101010002"
	require.NoError(t, f.service.Update(context.Background(), 4, &record))
	assert.Equal(t, 4, updatedID)
	assert.Empty(t, f.desk.calls)
}

func TestList_RejectsInvalidFilter(t *testing.T) {
	f := newRecordFixture()

	_, err := f.service.List(context.Background(), model.RecordFilter{Status: "done?"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Zero(t, f.store.calls)

	var got model.RecordFilter
	f.store.listFunc = func(ctx context.Context, filter model.RecordFilter) ([]model.Record, error) {
		got = filter
		return nil, nil
	}
	_, err = f.service.List(context.Background(), model.RecordFilter{Status: "selesai", ServiceCode: " bp "})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, "BP", got.ServiceCode)
}

func TestTemplates_RejectsUnknownServiceCode(t *testing.T) {
	f := newRecordFixture()

	_, err := f.service.Templates(context.Background(), "X")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.Zero(t, f.templates.calls)

	templates, err := f.service.Templates(context.Background(), "psd")
	require.NoError(t, err)
	assert.Equal(t, "PSD", templates[0].ServiceCode)
}
