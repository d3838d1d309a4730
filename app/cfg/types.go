package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	Port              string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int
	FetchTimeout      int
	SeedFile          string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
