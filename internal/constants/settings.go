package constants

const (
	// Default Settings Values
	DefaultDayStart       = "07:00"
	DefaultDayEnd         = "22:00"
	DefaultScrapeMonths   = 2
	DefaultScrapeTimeout  = "30s"
	DefaultScrapeSchedule = "0 6 * * 1"
	DefaultStoragePath    = "MyDeskOnline-main"
	DefaultPortalBaseURL  = "https://esaip.alcuin.com"
)
