package discord

import "time"

const (
	CommandChatInput = 1

	OptionString  = 3
	OptionInteger = 4
)

type Choice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type ApplicationCommandOption struct {
	Type        int      `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	MinValue    *int     `json:"min_value,omitempty"`
	MaxValue    *int     `json:"max_value,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

type ApplicationCommand struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Type        int                        `json:"type"`
	Options     []ApplicationCommandOption `json:"options,omitempty"`
}

func intp(v int) *int { return &v }

func monthChoices() []Choice {
	out := make([]Choice, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, Choice{Name: m.String(), Value: int(m) - 1})
	}
	return out
}

func eventOption() ApplicationCommandOption {
	return ApplicationCommandOption{
		Type:        OptionString,
		Name:        "event",
		Description: "Name of the event",
		Required:    true,
		MaxLength:   30,
	}
}

// Commands returns the slash command schemas for /remindat and /remindin.
func Commands() []ApplicationCommand {
	return []ApplicationCommand{
		{
			Name:        "remindat",
			Description: "Set a reminder for a specific date and time",
			Type:        CommandChatInput,
			Options: []ApplicationCommandOption{
				eventOption(),
				{Type: OptionInteger, Name: "year", Description: "Year", Required: true},
				{Type: OptionInteger, Name: "month", Description: "Month", Required: true, MinValue: intp(0), MaxValue: intp(11), Choices: monthChoices()},
				{Type: OptionInteger, Name: "date", Description: "Day of the month", Required: true, MinValue: intp(1), MaxValue: intp(31)},
				{Type: OptionInteger, Name: "hour", Description: "Hour (0-23)", MinValue: intp(0), MaxValue: intp(23)},
				{Type: OptionInteger, Name: "minute", Description: "Minute (0-59)", MinValue: intp(0), MaxValue: intp(59)},
			},
		},
		{
			Name:        "remindin",
			Description: "Set a reminder after some time from now",
			Type:        CommandChatInput,
			Options: []ApplicationCommandOption{
				eventOption(),
				{Type: OptionInteger, Name: "minutes", Description: "Minutes from now", Required: true, MinValue: intp(0), MaxValue: intp(59)},
				{Type: OptionInteger, Name: "hours", Description: "Hours from now", MinValue: intp(0), MaxValue: intp(23)},
				{Type: OptionInteger, Name: "days", Description: "Days from now", MinValue: intp(0)},
			},
		},
		{
			Name:        "reminders",
			Description: "List your pending reminders",
			Type:        CommandChatInput,
		},
	}
}
