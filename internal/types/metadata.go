package types

// ScriptEntry is one script path bound to a hook or cron job, plus
// whether it runs asynchronously relative to its siblings.
type ScriptEntry struct {
	Script string `yaml:"script"`
	Async  bool   `yaml:"async,omitempty"`
}

// LuckyMetadata is the charm's lucky.yaml: which hooks and cron jobs
// it defines, and whether it needs the Docker adapter wired up at all.
//
// CronJobs is keyed by the cron expression itself, per the charm
// metadata format — a charm may not repeat the same expression twice,
// but distinct expressions firing the same scripts are independent
// entries.
type LuckyMetadata struct {
	UseDocker bool                     `yaml:"use_docker,omitempty"`
	Hooks     map[string][]ScriptEntry `yaml:"hooks,omitempty"`
	CronJobs  map[string][]ScriptEntry `yaml:"cron_jobs,omitempty"`
}

// ScriptsForHook returns the scripts bound to the named hook, or nil
// if the charm defines none.
func (m *LuckyMetadata) ScriptsForHook(name string) []ScriptEntry {
	return m.Hooks[name]
}

// Schedules returns the configured cron expressions.
func (m *LuckyMetadata) Schedules() []string {
	exprs := make([]string, 0, len(m.CronJobs))
	for expr := range m.CronJobs {
		exprs = append(exprs, expr)
	}
	return exprs
}
