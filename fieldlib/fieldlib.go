// Package fieldlib holds the per-source vocabularies the generators draw
// from: hosts, transaction codes, service names, endpoints, message templates
// and the like.
//
// Libraries are plain data passed into each generator at construction. There
// is no package-level mutable state; Default builds a fresh value on every
// call so parallel runs and tests cannot interfere with each other.
package fieldlib

// Library bundles one vocabulary per source type.
type Library struct {
	SIEM SIEMVocabulary `yaml:"siem"`
	ERP  ERPVocabulary  `yaml:"erp"`
	App  AppVocabulary  `yaml:"application"`
}

// IntRange is an inclusive numeric range.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// CurrencyRange pairs a currency code with the plausible amount range for
// transactions in that currency. Amounts drawn for a currency must stay
// inside its range.
type CurrencyRange struct {
	Code string  `yaml:"code"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// LeveledMessages groups message templates by the level class they are
// rendered for: Info serves DEBUG/INFO, Warn serves WARN, Error serves
// ERROR/FATAL.
type LeveledMessages struct {
	Info  []string `yaml:"info"`
	Warn  []string `yaml:"warn"`
	Error []string `yaml:"error"`
}

// StatusMessages groups application message templates by HTTP status class.
type StatusMessages struct {
	Success     []string `yaml:"success"`
	ClientError []string `yaml:"client_error"`
	ServerError []string `yaml:"server_error"`
}

// SIEMVocabulary feeds the SIEM-style generator.
type SIEMVocabulary struct {
	Hosts        []string        `yaml:"hosts"`
	Categories   []string        `yaml:"categories"`
	ProcessNames []string        `yaml:"process_names"`
	Usernames    []string        `yaml:"usernames"`
	EventIDRange IntRange        `yaml:"event_id_range"`
	Messages     LeveledMessages `yaml:"messages"`
}

// ERPVocabulary feeds the ERP-style generator.
type ERPVocabulary struct {
	TransactionCodes []string        `yaml:"transaction_codes"`
	Departments      []string        `yaml:"departments"`
	Modules          []string        `yaml:"modules"`
	Currencies       []CurrencyRange `yaml:"currencies"`
	DocumentPrefixes []string        `yaml:"document_prefixes"`
	Usernames        []string        `yaml:"usernames"`
	Messages         LeveledMessages `yaml:"messages"`
}

// AppVocabulary feeds the application-style generator.
type AppVocabulary struct {
	Services   []string       `yaml:"services"`
	Endpoints  []string       `yaml:"endpoints"`
	Methods    []string       `yaml:"methods"`
	UserAgents []string       `yaml:"user_agents"`
	Messages   StatusMessages `yaml:"messages"`
}

// Default returns the built-in library. Every call builds a fresh value.
func Default() Library {
	return Library{
		SIEM: SIEMVocabulary{
			Hosts: []string{
				"fw-edge-01", "fw-edge-02", "dc-core-01", "db-host-02",
				"web-dmz-01", "vpn-gw-01", "mail-relay-01", "ids-sensor-03",
			},
			Categories: []string{
				"authentication", "network", "malware", "policy",
				"audit", "privilege", "file_access",
			},
			ProcessNames: []string{
				"sshd", "winlogon", "lsass", "sudo", "cron",
				"nginx", "postfix", "svchost",
			},
			Usernames: []string{
				"jsmith", "mchen", "rlopez", "akhan", "dwilliams",
				"svc_backup", "svc_deploy", "admin",
			},
			EventIDRange: IntRange{Min: 1000, Max: 8999},
			Messages: LeveledMessages{
				Info: []string{
					"User login succeeded",
					"Session opened for user",
					"Firewall rule matched",
					"Scheduled task completed",
					"Policy applied successfully",
					"Audit log rotated",
				},
				Warn: []string{
					"Multiple failed login attempts detected",
					"Certificate expires within 14 days",
					"Unusual login time for user",
					"Disk usage above threshold",
				},
				Error: []string{
					"Authentication failure",
					"Connection refused by peer",
					"Service terminated unexpectedly",
					"Malware signature detected",
					"Privilege escalation attempt blocked",
				},
			},
		},
		ERP: ERPVocabulary{
			TransactionCodes: []string{
				"VA01", "VA03", "FB60", "FB03", "F110",
				"ME21N", "ME23N", "MIGO", "MM02", "FK01",
			},
			Departments: []string{
				"finance", "procurement", "sales", "logistics", "hr", "controlling",
			},
			Modules: []string{"FI", "MM", "SD", "HR", "CO", "PP"},
			Currencies: []CurrencyRange{
				{Code: "USD", Min: 10, Max: 25000},
				{Code: "EUR", Min: 10, Max: 20000},
				{Code: "GBP", Min: 10, Max: 15000},
				{Code: "JPY", Min: 1000, Max: 2500000},
				{Code: "CHF", Min: 10, Max: 18000},
			},
			DocumentPrefixes: []string{"INV", "PO", "SO", "GR", "PAY"},
			Usernames: []string{
				"MUELLERA", "SCHMIDTK", "BAUERJ", "WAGNERT",
				"FISCHERM", "WEBERL", "BATCHRUN",
			},
			Messages: LeveledMessages{
				Info: []string{
					"Document posted successfully",
					"Transaction completed",
					"Purchase order created",
					"Goods receipt posted",
					"Payment run completed",
					"Invoice verified",
				},
				Warn: []string{
					"Document blocked for payment",
					"Approval pending beyond threshold",
					"Price variance above tolerance",
					"Posting period close approaching",
				},
				Error: []string{
					"Document posting failed",
					"Balance check failed for document",
					"Transaction rolled back",
					"Database lock timeout during posting",
					"Batch input session failed",
				},
			},
		},
		App: AppVocabulary{
			Services: []string{
				"payment-api", "auth-service", "checkout-service",
				"billing-service", "order-service", "user-service",
				"inventory-service", "notification-service", "search-service",
				"catalog-service", "report-service", "health-check",
			},
			Endpoints: []string{
				"/payment/process", "/payment/refund", "/auth/login",
				"/auth/token", "/checkout/complete", "/orders",
				"/orders/lookup", "/users/profile", "/account/settings",
				"/inventory/reserve", "/search", "/catalog/items",
				"/notifications/send", "/reports/daily", "/health", "/ping",
			},
			Methods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			UserAgents: []string{
				"okhttp/4.12.0",
				"python-requests/2.32.0",
				"Go-http-client/2.0",
				"Mozilla/5.0 (X11; Linux x86_64)",
				"curl/8.5.0",
				"axios/1.7.2",
			},
			Messages: StatusMessages{
				Success: []string{
					"Request completed successfully",
					"Resource retrieved",
					"Operation completed",
					"Resource created",
					"Cache hit for request",
				},
				ClientError: []string{
					"Validation failed for request payload",
					"Authentication token expired",
					"Rate limit exceeded for client",
					"Requested resource not found",
				},
				ServerError: []string{
					"Internal server error",
					"Upstream dependency timeout",
					"Database connection failed",
					"Service temporarily unavailable",
					"Unhandled exception while processing request",
				},
			},
		},
	}
}
