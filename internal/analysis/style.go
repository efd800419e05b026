package analysis

// DefaultStyleGuide is the house style fallback when no brand snippets or
// custom guide are configured.
const DefaultStyleGuide = `Tone: institutional, measured, precise. Write for a portfolio manager with five minutes.
- Lead with the fact, not the framing.
- Numbers over adjectives; every quantitative claim carries its figure.
- No hedging filler ("it remains to be seen"), no hype ("soaring", "plummeting").
- Actions are considerations for review, never direct buy/sell advice.
- Keep the whole brief under roughly 900 characters.`
