package model

type BookStatus string

const (
	BookStatusNew      BookStatus = "new"
	BookStatusExisting BookStatus = "existing"
)

type BookResult struct {
	RegNumber int        `json:"reg_number"`
	Status    BookStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

type RegNumberRequest struct {
	RegNumber int `json:"reg_number"`
}

type SwitchDateRequest struct {
	Date SystemDate `json:"date"`
}

type SwitchDateResult struct {
	Message      string     `json:"message"`
	CurrentDate  SystemDate `json:"current_date"`
	PreviousDate SystemDate `json:"previous_date"`
}

type MessageResult struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

const (
	RangeNormal          = "normal"
	RangeAttention       = "attention"
	RangeAlmostExhausted = "almost_exhausted"
)

// RegistrationRange is the allocator's view of the numbers for the active date.
type RegistrationRange struct {
	StartNumber      int        `json:"start_number"`
	EndNumber        int        `json:"end_number"`
	CurrentNumber    int        `json:"current_number"`
	RemainingNumbers int        `json:"remaining_numbers"`
	MaxUsedNumber    int        `json:"max_used_number"`
	BookedCount      int        `json:"booked_count"`
	CurrentDate      SystemDate `json:"current_date"`
}

func (r RegistrationRange) Health() string {
	switch {
	case r.RemainingNumbers < 10:
		return RangeAlmostExhausted
	case r.RemainingNumbers < 50:
		return RangeAttention
	default:
		return RangeNormal
	}
}

type RangeUpdate struct {
	StartNumber int `json:"start_number" validate:"required,min=1"`
	EndNumber   int `json:"end_number" validate:"required,gtfield=StartNumber"`
}

type DateStatistic struct {
	Date         SystemDate `json:"date"`
	TotalRecords int        `json:"total_records"`
	UsedNumbers  int        `json:"used_numbers"`
	MaxNumber    int        `json:"max_number"`
}
