package dynamo

// DynamoDB attribute names used in update and condition expressions across
// all repos. Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldStatus    = "status"
	fieldSessionID = "session_id"
	fieldVersion   = "version"
)
