package grounding

import "encoding/json"

// LocateStatus is the discriminator of a LocateResult.
type LocateStatus string

const (
	StatusSuccess  LocateStatus = "success"
	StatusNotFound LocateStatus = "not_found"
	StatusError    LocateStatus = "error"
)

// LocateResult is success(x, y), not_found or error(message). Use the
// constructors; a result never carries a coordinate and a message together.
type LocateResult struct {
	Status  LocateStatus
	X, Y    int
	Message string
}

// Success returns a result holding a screen coordinate.
func Success(x, y int) LocateResult {
	return LocateResult{Status: StatusSuccess, X: x, Y: y}
}

// NotFound returns the result for a target the model could not see.
func NotFound() LocateResult {
	return LocateResult{Status: StatusNotFound}
}

// Failure returns an error result with message.
func Failure(message string) LocateResult {
	return LocateResult{Status: StatusError, Message: message}
}

// MarshalJSON emits only the fields that belong to the status. A result not
// built by a constructor is emitted as an error.
func (r LocateResult) MarshalJSON() ([]byte, error) {
	switch r.Status {
	case StatusSuccess:
		return json.Marshal(struct {
			Status LocateStatus `json:"status"`
			X      int          `json:"x"`
			Y      int          `json:"y"`
		}{r.Status, r.X, r.Y})
	case StatusError:
		return json.Marshal(struct {
			Status  LocateStatus `json:"status"`
			Message string       `json:"message"`
		}{r.Status, r.Message})
	case StatusNotFound:
		return json.Marshal(struct {
			Status LocateStatus `json:"status"`
		}{r.Status})
	default:
		return json.Marshal(struct {
			Status  LocateStatus `json:"status"`
			Message string       `json:"message"`
		}{StatusError, "invalid locate result"})
	}
}

// String returns the JSON form.
func (r LocateResult) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}
