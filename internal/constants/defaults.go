package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the default build time when not provided at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the default git commit hash when not provided at build time
const DefaultGitCommit = "unknown"

// DefaultGoVersion is the default Go version when not provided at build time
const DefaultGoVersion = "unknown"

// DefaultTimezone is used by schedules without their own timezone
const DefaultTimezone = "Europe/Moscow"

// DefaultTickSeconds is how often the scheduler looks for due jobs
const DefaultTickSeconds = 10

// DefaultFailureThreshold is the gateway failure streak that marks the bot unhealthy
const DefaultFailureThreshold = 3

// DefaultSendTimeoutSeconds bounds a single Telegram request
const DefaultSendTimeoutSeconds = 10

// DefaultSendAttempts is how many times a rate-limited or failed Telegram
// request is tried
const DefaultSendAttempts = 3

// DefaultAnswerCallbackTimeout bounds answering a button press
const DefaultAnswerCallbackTimeout = 5

// DefaultHTTPListen is the address of the health and metrics server
const DefaultHTTPListen = "127.0.0.1:9090"

// DefaultMetricsNamespace prefixes every Prometheus metric
const DefaultMetricsNamespace = "pollbot"

// DefaultWizardTTLMinutes drops abandoned schedule wizards
const DefaultWizardTTLMinutes = 30
