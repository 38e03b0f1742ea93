package config

const (
	defaultConfigPath            = "~/.config/splice/config.toml"
	defaultDataDir               = "~/.local/share/splice/projects"
	defaultLogDir                = "~/.local/share/splice/logs"
	defaultLedgerPath            = "~/.local/share/splice/ledger.db"
	defaultStageTimeoutSeconds   = 600
	defaultMaxRetriesPerProvider = 2
	defaultBackoffMode           = BackoffExponential
	defaultBackoffBaseMillis     = 500
	defaultBackoffMaxMillis      = 8000
	defaultMaxConcurrentProjects = 2
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMReferer            = "https://github.com/splice-media/splice"
	defaultLLMTitle              = "Splice"
	defaultSampleRate            = 16000
	defaultLanguage              = "en"
)

// Backoff modes.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Default returns a Config populated with repository defaults. Stages are
// wired to local builtins so a fresh install can run end to end once a
// transcript is supplied by a command provider.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Pipeline: Pipeline{
			StageTimeoutSeconds:   defaultStageTimeoutSeconds,
			MaxRetriesPerProvider: defaultMaxRetriesPerProvider,
			BackoffMode:           defaultBackoffMode,
			BackoffBaseMillis:     defaultBackoffBaseMillis,
			BackoffMaxMillis:      defaultBackoffMaxMillis,
			MaxConcurrentProjects: defaultMaxConcurrentProjects,
		},
		Stages: map[string]Stage{},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
		Assets: Assets{
			Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".mp4", ".mov"},
		},
		Logging: Logging{
			Format:      "console",
			Level:       "info",
			ProjectLogs: true,
		},
	}
}

// StageNames lists the pipeline stages in execution order.
var StageNames = []string{
	"transcribe",
	"plan-cuts",
	"plan-templates",
	"suggest-assets",
	"resolve-assets",
	"assemble-timeline",
}
