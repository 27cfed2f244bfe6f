package apperrors

var (
	ErrInvalidRange      = InvalidArg("check-in must be before check-out")
	ErrDatesUnavailable  = Conflict("dates unavailable")
	ErrApartmentNotFound = NotFound("apartment not found")
	ErrBookingNotFound   = NotFound("booking not found")
	ErrChatNotFound      = NotFound("chat not found")
	ErrReviewNotFound    = NotFound("review not found")
	ErrNotParticipant    = Forbidden("not a participant of this chat")
	ErrNotOwner          = Forbidden("not the owner of this listing")
	ErrAdminOnly         = Forbidden("admin access required")
)
