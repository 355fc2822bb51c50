// Package integrations provides the shared HTTP client used by the bot's
// upstream services.
//
// Each service lives in its own subpackage and embeds [Client]:
//
//   - translate: Tencent Cloud machine translation (TC3-HMAC-SHA256 signed)
//   - wolfram: WolframAlpha Full Results API
//   - llm: OpenAI-compatible chat completions
//   - gemini: Google Gemini chat through google.golang.org/genai
//   - avatar: QQ avatar images
//
// [Client] maps HTTP status codes onto [ErrNotFound] and [ErrNetwork].
// Transport failures, 429 and 5xx responses are wrapped as retryable, and
// [Client.Cached] retries them with exponential backoff before caching the
// decoded result.
package integrations
