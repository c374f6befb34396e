package scheduler

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.started && !s.stopped && s.cfg.Enabled
	s.mu.Unlock()
	return Snapshot{
		Enabled:  s.cfg.Enabled,
		Timezone: s.loc.String(),
		Running:  running,
		Armed:    s.armed.Load(),
		Fired:    s.fired.Load(),
		Failed:   s.failed.Load(),
		Misfired: s.misfired.Load(),
		Triggers: s.Pending(""),
	}
}
