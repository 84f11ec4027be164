package constants

import "time"

// Target API defaults
const (
	DefaultBaseURL = "http://127.0.0.1:8000/api/v1"

	PathProcessReceipt = "/transactions/process"
	PathTransactions   = "/transactions"
	PathAgentInvoke    = "/users/me/agent/invoke"
	PathProfile        = "/users/me"

	// Multipart form field carrying the receipt image
	ReceiptFormField = "file"
)

// Identity provider defaults
const (
	DefaultIdentityProvider = "firebase"
	DefaultIdentityURL      = "https://identitytoolkit.googleapis.com"
	SignInWithPasswordPath  = "/v1/accounts:signInWithPassword"
)

// Orchestration defaults
const (
	DefaultReceiptsDir   = "../sample_reciepts"
	DefaultCategory      = "Groceries"
	DefaultQueryWindow   = 7 * 24 * time.Hour
	DateLayout           = "2006-01-02"
	DefaultSmokePrompt   = "How much did I spend on groceries last month?"
	DefaultLogBodyMaxLen = 4096
)

// DefaultPrompts is the ordered prompt list sent by the agent stage.
var DefaultPrompts = []string{
	"How much did I spend on groceries last month?",
	"What was my total spending in the last week?",
	"Show me my spending trends by category",
	"What store did I spend the most at?",
}

// Demo server defaults
const (
	DefaultDemoPort        = 3000
	DefaultShutdownTimeout = 10 * time.Second
	HealthMessage          = "Project Aegis Test UI is running!"
)
