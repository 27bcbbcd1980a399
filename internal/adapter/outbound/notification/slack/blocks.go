package slack

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// scoreBar renders a 0-100 health score as a ten-segment bar.
func scoreBar(score int) string {
	filled := min(max(score/10, 0), 10)
	return fmt.Sprintf("[%s%s] %d/100",
		strings.Repeat("█", filled),
		strings.Repeat("░", 10-filled),
		score,
	)
}

func riskEmoji(risk string) string {
	switch risk {
	case "high-risk":
		return ":red_circle:"
	case "moderate-risk":
		return ":large_orange_circle:"
	case "low-risk":
		return ":large_green_circle:"
	default:
		return ":white_circle:"
	}
}

func markdownSection(text string) *slackapi.SectionBlock {
	return slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false),
		nil, nil,
	)
}

// BuildReportBlocks constructs Block Kit blocks for a report notification.
func BuildReportBlocks(n outbound.ReportNotification) []slackapi.Block {
	title := ":microscope: *Report needs review*"
	if n.Level == outbound.NotificationCritical {
		title = ":rotating_light: *Critical values detected*"
	}

	fields := []*slackapi.TextBlockObject{
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*File*\n%s", n.Filename), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Patient*\n%s", n.PatientName), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Risk*\n%s %s", riskEmoji(n.OverallRisk), strings.ToUpper(n.OverallRisk)), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Engine*\n%s", n.Engine), false, false),
	}

	blocks := []slackapi.Block{
		markdownSection(title),
		slackapi.NewDividerBlock(),
		slackapi.NewSectionBlock(nil, fields, nil),
		markdownSection(fmt.Sprintf("*Health score*\n`%s`", scoreBar(n.HealthScore))),
	}

	if n.Summary != "" {
		blocks = append(blocks, markdownSection(fmt.Sprintf("*Summary*\n%s", n.Summary)))
	}

	if len(n.RedFlags) > 0 {
		lines := make([]string, 0, len(n.RedFlags))
		for _, p := range n.RedFlags {
			lines = append(lines, fmt.Sprintf("• *%s*: %s %s _(ref %s)_", p.Name, p.Value, p.Unit, p.NormalRange))
		}
		blocks = append(blocks, slackapi.NewDividerBlock(),
			markdownSection("*Red flags*\n"+strings.Join(lines, "\n")))
	}

	blocks = append(blocks, slackapi.NewContextBlock("",
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("Report `%s` | Analysis `%s` | Session `%s`", n.ReportID, n.AnalysisID, n.SessionID),
			false, false),
	))
	return blocks
}
