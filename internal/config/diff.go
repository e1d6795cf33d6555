package config

import "strings"

// Change summarizes what a reload touched.
type Change struct {
	Sections []string
	// RestartRequired is set when a changed field is only read at startup.
	RestartRequired []string
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// Summarize compares two configs. It never looks at secrets, which are not
// part of Config.
func Summarize(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change

	op, np := oldCfg.Poll, newCfg.Poll
	if strings.TrimSpace(op.Schedule) != strings.TrimSpace(np.Schedule) {
		ch.Sections = append(ch.Sections, "poll.schedule")
	}
	if strings.TrimSpace(op.Endpoint) != strings.TrimSpace(np.Endpoint) {
		ch.Sections = append(ch.Sections, "poll.endpoint")
		ch.RestartRequired = append(ch.RestartRequired, "poll.endpoint")
	}
	if strings.TrimSpace(op.Timeout) != strings.TrimSpace(np.Timeout) {
		ch.Sections = append(ch.Sections, "poll.timeout")
		ch.RestartRequired = append(ch.RestartRequired, "poll.timeout")
	}
	if strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) {
		ch.Sections = append(ch.Sections, "telegram")
	}
	if oldCfg.Logging != newCfg.Logging {
		ch.Sections = append(ch.Sections, "logging")
	}
	if oldCfg.Ops != newCfg.Ops {
		ch.Sections = append(ch.Sections, "ops")
	}
	return ch
}
