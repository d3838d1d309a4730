package seed

// File is the root of a seed file: accounts to provision with their feed
// sources and an optional reader widget subscribed to all of them.
type File struct {
	Users []UserSeed `yaml:"users"`
}

// UserSeed provisions one account.
type UserSeed struct {
	Email   string       `yaml:"email"`
	Sources []SourceSeed `yaml:"sources"`
	Reader  *ReaderSeed  `yaml:"reader"`
}

// SourceSeed registers one feed source for the user.
type SourceSeed struct {
	URL         string `yaml:"url"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ReaderSeed creates a reader widget subscribed to every seeded source.
type ReaderSeed struct {
	Title string `yaml:"title"`
}
