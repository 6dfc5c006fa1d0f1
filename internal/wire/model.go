package wire

// ContentType is sent with every response, including plain-text error bodies
const ContentType = "application/json"

// Reply bodies of the phonebook protocol
const (
	TextBadRequestData = "Bad request data."
	TextMissingField   = "Missing compulsory field."
	TextUnsupported    = "Unsupported field."
	TextDuplicate      = "Duplicate entry."
	TextNoSuchEntry    = "No such entry."
	TextUnknownAction  = "Unknown action."
	TextServerError    = "Server Error"
)

// Value is a single response: an HTTP status and the raw body
type Value struct {
	Body   []byte
	Status int
}
