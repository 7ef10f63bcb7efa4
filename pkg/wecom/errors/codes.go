// Package errors classifies WeCom group-bot API error codes. Classification is
// pure: every property of an error (message, category, severity, retryability,
// remediation suggestion) is derived from the numeric code through static
// lookup tables and never persisted.
package errors

// Category groups error codes by the subsystem that produced them.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryParameter  Category = "parameter"
	CategoryContent    Category = "content"
	CategoryFile       Category = "file"
	CategoryRateLimit  Category = "rate_limit"
	CategoryPermission Category = "permission"
	CategoryNetwork    Category = "network"
	CategorySystem     Category = "system"
	CategoryUnknown    Category = "unknown"
)

// Severity ranks how urgently an error needs operator attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Synthetic codes for failures that never reached the WeCom API or whose
// response could not be interpreted.
const (
	CodeSystemBusy        = -1
	CodeTimeout           = -2
	CodeNetworkFailure    = -3
	CodeInvalidURL        = -4
	CodeMalformedResponse = -5
	CodeNotImplemented    = -6
)

type codeInfo struct {
	message    string
	category   Category
	severity   Severity
	suggestion string
}

// codeTable maps WeCom API error codes (plus the synthetic negative codes) to
// their classification. Messages follow the API documentation; bot-specific
// codes live in the 93000 and 300000 ranges.
var codeTable = map[int]codeInfo{
	// Synthetic codes.
	CodeSystemBusy:        {"system busy", CategorySystem, SeverityMedium, "the API is temporarily overloaded, retry after a short delay"},
	CodeTimeout:           {"request timed out", CategoryNetwork, SeverityMedium, "check network latency or increase the request timeout"},
	CodeNetworkFailure:    {"network request failed", CategoryNetwork, SeverityMedium, "check network connectivity and DNS resolution"},
	CodeInvalidURL:        {"invalid webhook URL", CategoryAuth, SeverityCritical, "the webhook URL must be an HTTPS qyapi.weixin.qq.com webhook send endpoint"},
	CodeMalformedResponse: {"malformed API response", CategoryNetwork, SeverityMedium, "the endpoint did not return the expected errcode/errmsg envelope"},
	CodeNotImplemented:    {"feature not yet supported", CategorySystem, SeverityLow, "use a supported input variant for this message type"},

	// Authentication and configuration.
	40001: {"invalid credential secret", CategoryAuth, SeverityCritical, "verify the application secret in the credential configuration"},
	40013: {"invalid corp id", CategoryAuth, SeverityCritical, "verify the corp id bound to the credential"},
	40014: {"invalid access token", CategoryAuth, SeverityCritical, "refresh the access token and retry the operation"},
	41001: {"access token missing", CategoryAuth, SeverityCritical, "supply an access token with the request"},
	42001: {"access token expired", CategoryAuth, SeverityMedium, "the token will be refreshed automatically, no action needed"},
	42002: {"refresh token expired", CategoryAuth, SeverityMedium, "the token will be refreshed automatically, no action needed"},
	40056: {"invalid agent id", CategoryAuth, SeverityCritical, "verify the agent id configured for the application"},
	40057: {"invalid callback url", CategoryAuth, SeverityHigh, "verify the callback URL registered for the application"},
	40091: {"invalid bot secret", CategoryAuth, SeverityCritical, "regenerate the bot webhook in the group settings"},
	60020: {"caller IP not in allow-list", CategoryAuth, SeverityCritical, "add the caller IP to the trusted IP list in the admin console"},

	// Parameters.
	40002: {"invalid grant type", CategoryAuth, SeverityCritical, "use the client_credential grant type"},
	40003: {"invalid user id list", CategoryParameter, SeverityLow, "remove unknown member accounts from the mention list"},
	40008: {"invalid message type", CategoryParameter, SeverityHigh, "use one of: text, markdown, image, news, file"},
	40035: {"invalid parameter", CategoryParameter, SeverityLow, "check the request body against the message schema"},
	40038: {"invalid request format", CategoryParameter, SeverityLow, "the request body must be a JSON object"},
	40058: {"invalid parameter value", CategoryParameter, SeverityLow, "check parameter values against the documented ranges"},
	40066: {"invalid URL in message", CategoryParameter, SeverityLow, "card and image URLs must be absolute http(s) URLs"},
	41011: {"missing required field", CategoryParameter, SeverityHigh, "supply all required fields for the message type"},
	44002: {"empty request body", CategoryParameter, SeverityHigh, "the POST body must carry a message object"},
	40054: {"invalid sub-menu URL", CategoryParameter, SeverityLow, "menu URLs must be absolute http(s) URLs"},
	40055: {"invalid button URL", CategoryParameter, SeverityLow, "button URLs must be absolute http(s) URLs"},
	40068: {"invalid department id", CategoryParameter, SeverityLow, "verify the department id exists"},
	40096: {"invalid external user id", CategoryParameter, SeverityLow, "verify the external contact id"},
	41002: {"corp id missing", CategoryParameter, SeverityHigh, "supply the corp id with the request"},
	41004: {"secret missing", CategoryParameter, SeverityHigh, "supply the application secret with the request"},
	41006: {"media id missing", CategoryParameter, SeverityHigh, "supply a media id for file messages"},
	47001: {"request body is not valid JSON", CategoryParameter, SeverityLow, "check the JSON serialization of the message"},
	47003: {"required argument missing from request", CategoryParameter, SeverityHigh, "check required fields for the message type"},

	// Content.
	44003: {"news content is empty", CategoryContent, SeverityHigh, "a news message needs at least one article"},
	44004: {"text content is empty", CategoryContent, SeverityHigh, "text and markdown messages need non-empty content"},
	45002: {"message content exceeds length limit", CategoryContent, SeverityMedium, "shorten the content to at most 4096 characters"},
	45003: {"title exceeds length limit", CategoryContent, SeverityMedium, "shorten article titles to at most 128 characters"},
	45004: {"description exceeds length limit", CategoryContent, SeverityMedium, "shorten article descriptions to at most 512 characters"},
	45005: {"link exceeds length limit", CategoryContent, SeverityMedium, "shorten the article URL"},
	45006: {"picture URL exceeds length limit", CategoryContent, SeverityMedium, "shorten the article picture URL"},
	45008: {"too many articles in news message", CategoryContent, SeverityMedium, "a news message carries at most 8 articles"},
	45010: {"too many mentions in message", CategoryContent, SeverityMedium, "reduce the number of mentioned members"},
	81013: {"all mentioned users are invalid", CategoryContent, SeverityLow, "verify the mentioned member accounts exist in the group"},

	// Files and media.
	40004: {"invalid media file type", CategoryFile, SeverityHigh, "only png and jpg images are supported"},
	40005: {"invalid file type", CategoryFile, SeverityHigh, "check the uploaded file type against the supported list"},
	40006: {"file size exceeds limit", CategoryFile, SeverityMedium, "uploaded files are limited to 20MB"},
	40007: {"invalid media id", CategoryFile, SeverityHigh, "upload the file again to obtain a fresh media id"},
	40009: {"image size exceeds limit", CategoryFile, SeverityMedium, "images are limited to 2MB"},
	44001: {"media file is empty", CategoryFile, SeverityHigh, "the uploaded media payload is empty"},
	45001: {"media size exceeds limit", CategoryFile, SeverityMedium, "reduce the media payload size"},
	45007: {"voice duration exceeds limit", CategoryFile, SeverityMedium, "voice clips are limited to 60 seconds"},
	46004: {"media id expired", CategoryFile, SeverityHigh, "media ids are valid for 3 days, upload the file again"},

	// Rate limiting.
	45009: {"API call frequency exceeded", CategoryRateLimit, SeverityMedium, "a group bot sends at most 20 messages per minute, slow down"},
	45026: {"daily API quota exceeded", CategoryRateLimit, SeverityMedium, "wait for the quota window to reset"},
	45033: {"concurrent call limit exceeded", CategoryRateLimit, SeverityMedium, "reduce concurrent requests against the API"},

	// Permissions.
	48002: {"API forbidden for this application", CategoryPermission, SeverityCritical, "enable the API permission in the application settings"},
	50001: {"API unauthorized", CategoryPermission, SeverityCritical, "the credential lacks permission for this API"},
	50002: {"user not in permitted scope", CategoryPermission, SeverityHigh, "the target user is outside the application's visible range"},
	60011: {"no permission to access the resource", CategoryPermission, SeverityHigh, "grant the application access to the target resource"},
	60111: {"user id not found", CategoryPermission, SeverityLow, "verify the member account exists"},
	82001: {"none of the recipients are reachable", CategoryPermission, SeverityLow, "verify the recipients are members of the group"},
	82002: {"invalid mobile number in mention list", CategoryPermission, SeverityLow, "mentioned phone numbers must be valid mainland mobile numbers"},

	// System.
	40029: {"invalid oauth code", CategorySystem, SeverityLow, "request a fresh oauth code"},
	43004: {"recipient has not followed the application", CategorySystem, SeverityLow, "the recipient must follow the application to receive messages"},
	45024: {"account count exceeds limit", CategorySystem, SeverityLow, "reduce the number of accounts in the request"},
	50100: {"internal service error", CategorySystem, SeverityMedium, "the API reported an internal fault, retry later"},
	50101: {"service unavailable", CategorySystem, SeverityMedium, "the API is under maintenance, retry later"},
	610001: {"signature verification failed", CategoryAuth, SeverityHigh, "verify the callback signature settings"},
	640001: {"invalid cursor", CategoryParameter, SeverityLow, "restart pagination from the beginning"},

	// Group-bot specific (93000 range).
	93000: {"webhook URL invalid or bot removed from group", CategoryAuth, SeverityCritical, "recreate the bot in the group and update the webhook URL credential"},
	93004: {"bot has been disabled", CategoryAuth, SeverityCritical, "re-enable the bot in the group settings"},
	93008: {"bot message rejected by group policy", CategoryPermission, SeverityHigh, "check the group's bot message policy"},

	// Group-chat specific (300000 range).
	301002: {"no permission to manage the group chat", CategoryPermission, SeverityHigh, "the bot owner must be a group administrator"},
	301005: {"group chat member limit reached", CategorySystem, SeverityLow, "remove inactive members before adding new ones"},
	301021: {"invalid chat id", CategoryParameter, SeverityHigh, "verify the chat id supplied to the API"},
	301022: {"chat not found", CategoryParameter, SeverityHigh, "the group chat does not exist or was dismissed"},
}

// retryableCodes is the fixed allow-list of codes worth retrying. Everything
// else, including every validation, auth, and content error, is terminal.
var retryableCodes = map[int]bool{
	CodeSystemBusy:     true,
	CodeTimeout:        true,
	CodeNetworkFailure: true,
	42001:              true,
	42002:              true,
	45009:              true,
}
