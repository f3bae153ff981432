package config

// Capabilities records which optional integrations are usable in this
// process. It is computed once at startup and passed by pointer to the
// components that branch on it.
type Capabilities struct {
	WebEnabled   bool `json:"web_enabled"`
	BrowserFetch bool `json:"browser_fetch"`
	FAISS        bool `json:"faiss"`
	ONNX         bool `json:"onnx"`
	Frontend     bool `json:"frontend"`
	SQLiteTrace  bool `json:"sqlite_trace"`
}

// Probe reports whether an optional integration is present.
type Probe func() bool

// Probes are the checks DetectCapabilities runs. A nil probe counts as absent.
type Probes struct {
	FAISS   Probe
	ONNX    Probe
	Browser Probe
}

// DetectCapabilities combines the configuration with the probe results.
func DetectCapabilities(cfg *Config, probes Probes) *Capabilities {
	run := func(p Probe) bool { return p != nil && p() }
	web := cfg.Agent.WebOrDefault()
	return &Capabilities{
		WebEnabled:   web,
		BrowserFetch: web && cfg.Agent.EnableBrowser && run(probes.Browser),
		FAISS:        cfg.Storage.IndexType == "faiss" && run(probes.FAISS),
		ONNX:         cfg.Embedding.Provider == "onnx" && run(probes.ONNX),
		Frontend:     cfg.Server.FrontendOrDefault(),
		SQLiteTrace:  cfg.Trace.SQLite,
	}
}
