package config

import (
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the PostgreSQL database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database User", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the PostgreSQL database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptDatabaseSSLMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Database.SSLMode", s) {
			c.Database.SSLMode = s
		}
	}
}

// OptHarvestArxivAPI sets the base URL of the arXiv API.
func OptHarvestArxivAPI(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest arXiv API", s) {
			c.Harvest.ArxivAPI = s
		}
	}
}

// OptHarvestArxivDelay sets seconds to wait between arXiv requests.
func OptHarvestArxivDelay(i int) Option {
	return func(c *Config) {
		if isValidInt("Harvest arXiv Delay", i) {
			c.Harvest.ArxivDelay = i
		}
	}
}

// OptHarvestCrossrefAPI sets the base URL of the Crossref API.
func OptHarvestCrossrefAPI(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest Crossref API", s) {
			c.Harvest.CrossrefAPI = s
		}
	}
}

// OptHarvestCrossrefDelay sets seconds to wait between Crossref requests.
func OptHarvestCrossrefDelay(i int) Option {
	return func(c *Config) {
		if isValidInt("Harvest Crossref Delay", i) {
			c.Harvest.CrossrefDelay = i
		}
	}
}

// OptHarvestEmail sets the contact email sent to external APIs.
func OptHarvestEmail(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest Email", s) {
			c.Harvest.Email = s
		}
	}
}

// OptHarvestInstitutionAbbrev sets the institution abbreviation used in
// affiliation queries.
func OptHarvestInstitutionAbbrev(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest Institution Abbreviation", s) {
			c.Harvest.InstitutionAbbrev = s
		}
	}
}

// OptHarvestInstitutionCity sets the city used in affiliation queries.
func OptHarvestInstitutionCity(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest Institution City", s) {
			c.Harvest.InstitutionCity = s
		}
	}
}

// OptHarvestSkipNames sets author names that are not searched by name.
func OptHarvestSkipNames(ss []string) Option {
	var names []string
	for _, v := range ss {
		v = strings.TrimSpace(v)
		if v != "" {
			names = append(names, v)
		}
	}
	return func(c *Config) {
		if len(names) > 0 {
			c.Harvest.SkipNames = names
		}
	}
}

// OptHarvestMetricsFile sets the path of Prometheus text metrics output.
func OptHarvestMetricsFile(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Harvest Metrics File", s) {
			c.Harvest.MetricsFile = s
		}
	}
}

// OptHarvestSources limits harvest to the given sources.
// Runtime-only field - not in ToOptions().
func OptHarvestSources(ss []string) Option {
	var srcs []string
	for _, v := range ss {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if isValidEnum("Harvest.Sources", v) {
			srcs = append(srcs, v)
		}
	}
	return func(c *Config) {
		if len(srcs) > 0 {
			c.Harvest.Sources = srcs
		}
	}
}

// OptHarvestMode sets the harvest mode.
// Valid values: "new", "reharvest", "reprocess".
// Runtime-only field - not in ToOptions().
func OptHarvestMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Harvest.Mode", s) {
			c.Harvest.Mode = s
		}
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of sources harvested concurrently.
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log locations.
// Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
