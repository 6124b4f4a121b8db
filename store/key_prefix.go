package store

// Declare database key prefix for objects
const (
	PrefixAccount = "account:"
	PrefixRecord  = "record:"

	// KeyProgramState is the singleton sequencing row.
	KeyProgramState = "state:program"
)
