package models

// NoticeType tags a notice for display
type NoticeType string

const (
	NoticeSuccess NoticeType = "success"
	NoticeError   NoticeType = "error"
)

// View names where the caller lands after an operation
const (
	ViewSeatSelection = "seat_selection"
	ViewMyBookings    = "my_bookings"
	ViewPayment       = "payment"
	ViewAdminBookings = "admin_bookings"
)

// ReturnTo keeps the trip context so a failed operation can be retried
// without searching again
type ReturnTo struct {
	View       string `json:"view"`
	BusID      int64  `json:"bus_id,omitempty"`
	TravelDate string `json:"travel_date,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

// Notice is the single human-readable outcome of an operation
type Notice struct {
	Type     NoticeType `json:"type"`
	Message  string     `json:"message"`
	ReturnTo ReturnTo   `json:"return_to"`
}

// RequestContext is threaded through every core operation instead of session state
type RequestContext struct {
	PrincipalID string
	IPAddress   string
	UserAgent   string
	Outcome     *Notice
}

// Authenticated reports whether a principal is present
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.PrincipalID != ""
}

// Succeed records a success notice
func (rc *RequestContext) Succeed(message string, returnTo ReturnTo) {
	rc.Outcome = &Notice{Type: NoticeSuccess, Message: message, ReturnTo: returnTo}
}

// Fail records an error notice
func (rc *RequestContext) Fail(message string, returnTo ReturnTo) {
	rc.Outcome = &Notice{Type: NoticeError, Message: message, ReturnTo: returnTo}
}
