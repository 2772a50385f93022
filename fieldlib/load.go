package fieldlib

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load returns the default library with the YAML overlay at path applied on
// top. Only lists the overlay actually provides replace their defaults; the
// merged result is validated as a whole.
func Load(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("failed to read field library overlay %q: %w", path, err)
	}

	var overlay Library
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Library{}, fmt.Errorf("failed to parse field library overlay %q: %w", path, err)
	}

	lib := Default()
	merge(&lib, &overlay)
	if err := lib.Validate(); err != nil {
		return Library{}, fmt.Errorf("field library overlay %q: %w", path, err)
	}
	return lib, nil
}

func merge(base, overlay *Library) {
	mergeStrings(&base.SIEM.Hosts, overlay.SIEM.Hosts)
	mergeStrings(&base.SIEM.Categories, overlay.SIEM.Categories)
	mergeStrings(&base.SIEM.ProcessNames, overlay.SIEM.ProcessNames)
	mergeStrings(&base.SIEM.Usernames, overlay.SIEM.Usernames)
	if overlay.SIEM.EventIDRange != (IntRange{}) {
		base.SIEM.EventIDRange = overlay.SIEM.EventIDRange
	}
	mergeLeveled(&base.SIEM.Messages, overlay.SIEM.Messages)

	mergeStrings(&base.ERP.TransactionCodes, overlay.ERP.TransactionCodes)
	mergeStrings(&base.ERP.Departments, overlay.ERP.Departments)
	mergeStrings(&base.ERP.Modules, overlay.ERP.Modules)
	if len(overlay.ERP.Currencies) > 0 {
		base.ERP.Currencies = overlay.ERP.Currencies
	}
	mergeStrings(&base.ERP.DocumentPrefixes, overlay.ERP.DocumentPrefixes)
	mergeStrings(&base.ERP.Usernames, overlay.ERP.Usernames)
	mergeLeveled(&base.ERP.Messages, overlay.ERP.Messages)

	mergeStrings(&base.App.Services, overlay.App.Services)
	mergeStrings(&base.App.Endpoints, overlay.App.Endpoints)
	mergeStrings(&base.App.Methods, overlay.App.Methods)
	mergeStrings(&base.App.UserAgents, overlay.App.UserAgents)
	mergeStrings(&base.App.Messages.Success, overlay.App.Messages.Success)
	mergeStrings(&base.App.Messages.ClientError, overlay.App.Messages.ClientError)
	mergeStrings(&base.App.Messages.ServerError, overlay.App.Messages.ServerError)
}

func mergeStrings(base *[]string, overlay []string) {
	if len(overlay) > 0 {
		*base = overlay
	}
}

func mergeLeveled(base *LeveledMessages, overlay LeveledMessages) {
	mergeStrings(&base.Info, overlay.Info)
	mergeStrings(&base.Warn, overlay.Warn)
	mergeStrings(&base.Error, overlay.Error)
}

// Validate checks that every vocabulary list a generator draws from is
// non-empty and that numeric ranges are usable.
func (l Library) Validate() error {
	checks := []struct {
		name string
		n    int
	}{
		{"siem.hosts", len(l.SIEM.Hosts)},
		{"siem.categories", len(l.SIEM.Categories)},
		{"siem.process_names", len(l.SIEM.ProcessNames)},
		{"siem.usernames", len(l.SIEM.Usernames)},
		{"siem.messages.info", len(l.SIEM.Messages.Info)},
		{"siem.messages.warn", len(l.SIEM.Messages.Warn)},
		{"siem.messages.error", len(l.SIEM.Messages.Error)},
		{"erp.transaction_codes", len(l.ERP.TransactionCodes)},
		{"erp.departments", len(l.ERP.Departments)},
		{"erp.modules", len(l.ERP.Modules)},
		{"erp.currencies", len(l.ERP.Currencies)},
		{"erp.document_prefixes", len(l.ERP.DocumentPrefixes)},
		{"erp.usernames", len(l.ERP.Usernames)},
		{"erp.messages.info", len(l.ERP.Messages.Info)},
		{"erp.messages.warn", len(l.ERP.Messages.Warn)},
		{"erp.messages.error", len(l.ERP.Messages.Error)},
		{"application.services", len(l.App.Services)},
		{"application.endpoints", len(l.App.Endpoints)},
		{"application.methods", len(l.App.Methods)},
		{"application.user_agents", len(l.App.UserAgents)},
		{"application.messages.success", len(l.App.Messages.Success)},
		{"application.messages.client_error", len(l.App.Messages.ClientError)},
		{"application.messages.server_error", len(l.App.Messages.ServerError)},
	}
	for _, c := range checks {
		if c.n == 0 {
			return fmt.Errorf("vocabulary list %s is empty", c.name)
		}
	}

	if l.SIEM.EventIDRange.Min <= 0 || l.SIEM.EventIDRange.Max < l.SIEM.EventIDRange.Min {
		return fmt.Errorf("siem.event_id_range [%d,%d] is invalid",
			l.SIEM.EventIDRange.Min, l.SIEM.EventIDRange.Max)
	}
	for _, c := range l.ERP.Currencies {
		if c.Code == "" {
			return fmt.Errorf("erp currency with empty code")
		}
		if c.Max < c.Min || c.Min < 0 {
			return fmt.Errorf("erp currency %s amount range [%.2f,%.2f] is invalid", c.Code, c.Min, c.Max)
		}
	}
	return nil
}
