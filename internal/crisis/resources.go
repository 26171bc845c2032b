package crisis

import "github.com/mindspace/backend/internal/severity"

// Hotline is a single crisis contact.
type Hotline struct {
	Name      string `json:"name"`
	Number    string `json:"number"`
	Country   string `json:"country,omitempty"`
	Available string `json:"available,omitempty"`
}

// OnlineResource is a web-based crisis support service.
type OnlineResource struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Resources is the emergency resource catalog attached to flagged responses.
type Resources struct {
	Emergency     []Hotline        `json:"emergency"`
	International []Hotline        `json:"international"`
	Online        []OnlineResource `json:"online_support"`
}

// DefaultResources returns the hotline and online-support catalog.
func DefaultResources() Resources {
	return Resources{
		Emergency: []Hotline{
			{Name: "Emergency Services", Number: "911", Available: "24/7"},
			{Name: "National Suicide Prevention Lifeline (US)", Number: "988", Available: "24/7"},
			{Name: "Crisis Text Line", Number: "Text HOME to 741741", Available: "24/7"},
		},
		International: []Hotline{
			{Country: "UK", Name: "Samaritans", Number: "116 123"},
			{Country: "Australia", Name: "Lifeline", Number: "13 11 14"},
			{Country: "Canada", Name: "Crisis Services Canada", Number: "1-833-456-4566"},
			{Country: "India", Name: "AASRA", Number: "91-9820466726"},
		},
		Online: []OnlineResource{
			{Name: "Crisis Text Line", Link: "https://www.crisistextline.org"},
			{Name: "International Association for Suicide Prevention", Link: "https://www.iasp.info/resources/Crisis_Centres/"},
			{Name: "Befrienders Worldwide", Link: "https://www.befrienders.org"},
		},
	}
}

const criticalBanner = `**CRISIS ALERT**

I'm very concerned about what you've shared. Your safety is the top priority.

**IMMEDIATE ACTIONS:**
- If you are in immediate danger, please call 911 or your local emergency services
- National Suicide Prevention Lifeline: 988 (US) - Available 24/7
- Crisis Text Line: Text HOME to 741741

**You are not alone.** Professional help is available right now, and people care about you.

Please reach out to one of these resources immediately. They are trained to help in situations like this.`

const highBanner = `**Important: Professional Support Recommended**

I hear that you're going through a very difficult time. While I'm here to support you, I strongly encourage you to reach out to a mental health professional who can provide the specialized help you need.

**Support Resources:**
- National Suicide Prevention Lifeline: 988 (US)
- Crisis Text Line: Text HOME to 741741
- Your doctor or local mental health services

Would you like to talk about what's troubling you? I'm here to listen, but please also consider reaching out to professional support.`

// Banner returns the safety text that the calling layer prepends to responses
// at the given level. Empty below HIGH.
func Banner(level severity.Level) string {
	switch level {
	case severity.Critical:
		return criticalBanner
	case severity.High:
		return highBanner
	default:
		return ""
	}
}
