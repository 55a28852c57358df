package client

import (
	"github.com/nlmcp/nlmcp/internal/config"
)

// NotebookLM ships no API, so everything the client touches is located by
// DOM selectors. The lists below are ordered guesses over markup that Google
// changes without notice; all of them can be overridden from configuration.

// defaultChatInputSelectors is the locator cascade for the chat input box,
// most specific first.
var defaultChatInputSelectors = []string{
	"textarea[placeholder*='Ask']",
	"textarea[data-testid*='chat']",
	"textarea[aria-label*='message']",
	"[contenteditable='true'][role='textbox']",
	"input[type='text'][placeholder*='Ask']",
	"textarea:not([disabled])",
}

// defaultSendButtonSelectors is the fallback when submitting via Enter fails.
var defaultSendButtonSelectors = []string{
	"button[type='submit']",
	"button[aria-label*='Send']",
	"button[data-testid*='send']",
}

// defaultResponseSelectors are the containers that may hold the answer text.
var defaultResponseSelectors = []string{
	"[data-testid*='response']",
	"[data-testid*='message']",
	".response-content",
	".message-content",
	".chat-response",
	"[class*='response']",
	"[class*='message']",
	"[class*='answer']",
}

// defaultStreamingIndicators mark an answer still being generated.
var defaultStreamingIndicators = []string{
	"[class*='loading']",
	"[class*='typing']",
	"[class*='generating']",
	"[class*='spinner']",
	".dots",
}

// defaultArtifactTokens are UI chrome lines stripped from extracted answers.
var defaultArtifactTokens = []string{
	"content_copy",
	"thumb_up",
	"thumb_down",
	"more_vert",
	"volume_up",
	"share",
	"edit_note",
	"copy",
	"good response",
	"bad response",
}

// defaultBoilerplateExclusions filter the generic fallback text scan.
var defaultBoilerplateExclusions = []string{
	"ask about",
	"loading",
	"error",
	"sign in",
	"menu",
}

// signInURLPatterns identify a page that bounced to Google login.
var signInURLPatterns = []string{
	"signin",
	"accounts.google.com",
}

// fallbackMinLength is the minimum text length the generic scan accepts.
const fallbackMinLength = 50

// fallbackScanWindow is how many trailing text nodes the generic scan reads.
const fallbackScanWindow = 20

// selectorSet is the resolved selector data the client operates with.
type selectorSet struct {
	chatInput           []string
	sendButton          []string
	responseContainers  []string
	streamingIndicators []string
	artifactTokens      []string
	boilerplate         []string
}

// resolveSelectors applies configured overrides over the defaults. An empty
// override keeps the default list.
func resolveSelectors(sc config.SelectorConfig) selectorSet {
	return selectorSet{
		chatInput:           orDefault(sc.ChatInput, defaultChatInputSelectors),
		sendButton:          orDefault(sc.SendButton, defaultSendButtonSelectors),
		responseContainers:  orDefault(sc.ResponseContainers, defaultResponseSelectors),
		streamingIndicators: orDefault(sc.StreamingIndicators, defaultStreamingIndicators),
		artifactTokens:      orDefault(sc.ArtifactTokens, defaultArtifactTokens),
		boilerplate:         orDefault(sc.BoilerplateExclusions, defaultBoilerplateExclusions),
	}
}

func orDefault(override, def []string) []string {
	if len(override) > 0 {
		return override
	}
	return def
}
