package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nisabwisdom/backend/internal/logger"
)

const chatSystemPrompt = `You are an Islamic finance assistant for Nisab Wisdom. ` +
	`You answer questions about Zakat, halal investments, Islamic banking ` +
	`(Murabaha, Mudaraba, Musharaka, Ijarah, Sukuk), and Shariah-compliant ` +
	`personal finance. Key facts: gold nisab is 87.48 grams, silver nisab is ` +
	`612.36 grams, the Zakat rate is 2.5% on wealth held for one lunar year. ` +
	`Avoid interest-based recommendations and speculative investments. When ` +
	`unsure, recommend consulting a qualified scholar.`

// Chat reply sources.
const (
	ChatSourceProvider = "provider"
	ChatSourceFallback = "fallback"
)

var (
	sanitizePattern = regexp.MustCompile(`[<>"';\\]`)
	scriptPattern   = regexp.MustCompile(`(?i)\b(script|javascript|eval|exec)\b`)
)

// ChatConfig holds the AI provider parameters.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Chat answers Islamic-finance questions through a chat-completion
// provider, degrading to keyword-matched canned guidance when the
// provider is unreachable or unconfigured.
type Chat struct {
	config ChatConfig
	client *http.Client
	log    *logger.Logger
}

// NewChat creates the chat service; a zero timeout selects 30s.
func NewChat(cfg ChatConfig, log *logger.Logger) *Chat {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Chat{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// ChatReply is the answer plus where it came from.
type ChatReply struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Intent  string `json:"intent"`
}

// Respond answers one user message. Input is sanitised, off-topic
// questions are redirected, and provider failures fall back to canned
// guidance rather than erroring.
func (c *Chat) Respond(ctx context.Context, message string) ChatReply {
	message = sanitize(message)
	intent := classifyIntent(message)

	if !isFinanceRelated(message) {
		return ChatReply{
			Message: "I specialise in Islamic finance: Zakat, halal investments, and Shariah-compliant banking. Could you rephrase your question in that area?",
			Source:  ChatSourceFallback,
			Intent:  intent,
		}
	}

	if c.config.APIKey != "" {
		if reply, err := c.complete(ctx, message); err == nil {
			return ChatReply{Message: reply, Source: ChatSourceProvider, Intent: intent}
		} else {
			c.log.Warn("chat provider unavailable, using fallback", "error", err)
		}
	}

	return ChatReply{Message: fallbackReply(intent), Source: ChatSourceFallback, Intent: intent}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Chat) complete(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat provider returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}

	return parsed.Choices[0].Message.Content, nil
}

func sanitize(message string) string {
	message = sanitizePattern.ReplaceAllString(message, "")
	message = scriptPattern.ReplaceAllString(message, "")
	return strings.TrimSpace(message)
}

var intentKeywords = map[string][]string{
	"zakat_guidance":    {"zakat", "nisab", "charity", "2.5%", "lunar year"},
	"investment_advice": {"invest", "stock", "fund", "halal investment", "haram", "shariah compliant", "crypto", "etf"},
	"banking_guidance":  {"loan", "mortgage", "bank", "murabaha", "mudaraba", "islamic bank", "riba", "interest"},
	"business_guidance": {"business", "partnership", "profit", "loss sharing", "musharaka"},
}

func classifyIntent(message string) string {
	lower := strings.ToLower(message)
	for _, intent := range []string{"zakat_guidance", "investment_advice", "banking_guidance", "business_guidance"} {
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw) {
				return intent
			}
		}
	}
	return "general_islamic_finance"
}

var financeKeywords = []string{
	"zakat", "halal", "haram", "riba", "interest", "islamic", "shariah", "sharia",
	"sukuk", "murabaha", "mudaraba", "musharaka", "ijarah", "takaful",
	"investment", "invest", "bank", "loan", "mortgage", "finance", "money", "wealth",
	"business", "profit", "loss", "partnership", "trade", "nisab",
	"charity", "donation", "crypto", "bitcoin", "stock", "fund", "etf", "insurance",
	"allah", "quran", "hadith", "scholar", "fatwa", "fiqh",
}

func isFinanceRelated(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range financeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var fallbackReplies = map[string]string{
	"zakat_guidance": "Zakat is due at 2.5% on wealth held for one lunar year once it reaches the nisab " +
		"threshold: 87.48 grams of gold or 612.36 grams of silver, whichever is lower in value. " +
		"Zakatable assets include cash, gold, silver, business inventory, and investments; your primary " +
		"residence and personal items are exempt. Use the calculator on this site for an exact figure.",
	"investment_advice": "Shariah-compliant investing avoids interest (riba), excessive uncertainty, and " +
		"prohibited industries. Look for Shariah-screened equity funds and sukuk, and verify screening " +
		"with a recognised board such as AAOIFI. For specific holdings, consult a qualified scholar.",
	"banking_guidance": "Islamic banking replaces interest-bearing loans with trade- and partnership-based " +
		"contracts: Murabaha (cost-plus sale), Ijarah (leasing), Mudaraba and Musharaka (profit sharing), " +
		"and Sukuk (asset-backed certificates). An Islamic bank in your region can structure financing " +
		"through these instead of a conventional loan.",
	"business_guidance": "Islamic business ethics require honest dealing, shared risk, and freedom from " +
		"riba. Partnerships are commonly structured as Musharaka (joint capital and management) or " +
		"Mudaraba (one party funds, the other manages) with profit shares agreed up front.",
	"general_islamic_finance": "I can help with Zakat calculation, halal investing, and Islamic banking " +
		"contracts. Ask about any of these, or try the Zakat calculator for a personalised figure.",
}

func fallbackReply(intent string) string {
	if reply, ok := fallbackReplies[intent]; ok {
		return reply
	}
	return fallbackReplies["general_islamic_finance"]
}
