package config

const (
	defaultWorkRoot          = "~/.local/share/remake/runs"
	defaultDataDir           = "~/.local/share/remake"
	defaultLogDir            = "~/.local/share/remake/logs"
	defaultFFmpeg            = "ffmpeg"
	defaultFFprobe           = "ffprobe"
	defaultDownloader        = "yt-dlp"
	defaultUVX               = "uvx"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/remake/remake"
	defaultLLMTitle          = "Remake Pipeline"
	defaultLLMTimeoutSecs    = 60
	defaultGenPollSecs       = 10
	defaultGenTimeoutSecs    = 1800
	defaultWhisperModel      = "large-v3-turbo"
	defaultQAMinScore        = 70
	defaultQADurationTolPct  = 10.0
	defaultMaxStageRetries   = 1
	defaultProbeTimeout      = 120
	defaultDownloadTimeout   = 1800
	defaultRenderTimeout     = 3600
	defaultGenerationTimeout = 1800
	defaultTranscribeTimeout = 1800
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkRoot: defaultWorkRoot,
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:     defaultFFmpeg,
			FFprobe:    defaultFFprobe,
			Downloader: defaultDownloader,
			UVX:        defaultUVX,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSecs,
		},
		Generation: Generation{
			PollSeconds:    defaultGenPollSecs,
			TimeoutSeconds: defaultGenTimeoutSecs,
		},
		Transcription: Transcription{
			Model: defaultWhisperModel,
		},
		QA: QA{
			MinScore:             defaultQAMinScore,
			DurationTolerancePct: defaultQADurationTolPct,
		},
		Workflow: Workflow{
			MaxStageRetries:   defaultMaxStageRetries,
			ProbeTimeout:      defaultProbeTimeout,
			DownloadTimeout:   defaultDownloadTimeout,
			RenderTimeout:     defaultRenderTimeout,
			GenerationTimeout: defaultGenerationTimeout,
			TranscribeTimeout: defaultTranscribeTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
