package conversation

import (
	"fmt"
	"strings"

	"github.com/ignatzorin/disaster-backend/internal/domain/entity"
	"github.com/ignatzorin/disaster-backend/internal/domain/valueobject"
)

// Подписи кнопок. Нажатие на них приходит обычным текстом.
const (
	LabelReport          = "🚨 Report Disaster"
	LabelMyReports       = "📊 My Reports"
	LabelHelp            = "ℹ️ Help"
	LabelEmergency       = "🆘 Emergency"
	LabelCancel          = "Cancel"
	LabelSkipDescription = "Skip Description"
	LabelSkipPhotos      = "Skip Photos"
	LabelSubmit          = "Submit Report"
	LabelShareLocation   = "📍 Share Location"
)

// Команды, в том числе полученные из подписей кнопок.
const (
	CommandStart           = "start"
	CommandReport          = "report"
	CommandStatus          = "status"
	CommandHelp            = "help"
	CommandEmergency       = "emergency"
	CommandCancel          = "cancel"
	CommandSkipDescription = "skip_description"
	CommandSkipPhotos      = "skip_photos"
	CommandSubmit          = "submit"
)

const (
	choiceTypePrefix     = "type_"
	choiceSeverityPrefix = "severity_"
)

var labelCommands = map[string]string{
	LabelReport:          CommandReport,
	LabelMyReports:       CommandStatus,
	LabelHelp:            CommandHelp,
	LabelEmergency:       CommandEmergency,
	LabelCancel:          CommandCancel,
	LabelSkipDescription: CommandSkipDescription,
	LabelSkipPhotos:      CommandSkipPhotos,
	LabelSubmit:          CommandSubmit,
}

// CommandFromLabel возвращает команду для подписи кнопки.
func CommandFromLabel(text string) (string, bool) {
	cmd, ok := labelCommands[strings.TrimSpace(text)]
	return cmd, ok
}

// TypeChoiceData и SeverityChoiceData формируют payload inline-кнопок.
func TypeChoiceData(t valueobject.DisasterType) string {
	return choiceTypePrefix + string(t)
}

func SeverityChoiceData(s valueobject.Severity) string {
	return choiceSeverityPrefix + string(s)
}

const welcomeText = `🚨 *Welcome to Disaster Management Bot*

I help you report disasters and emergencies in your area.

*Available Commands:*
/report - Report a new disaster
/status - Check your recent reports
/help - Get help and instructions
/emergency - Quick emergency report
/cancel - Cancel the current report

Stay safe! 🙏`

const helpText = `📋 *How to Report a Disaster:*

1. Use /report or click "🚨 Report Disaster"
2. Select disaster type
3. Choose severity level
4. Share your location
5. Add description and photos (optional)
6. Submit report

*Emergency Reporting:*
- Use /emergency for critical situations
- Your location will be immediately requested
- Report will be marked as high priority

*No location button?*
Send ` + "`/location <latitude> <longitude>`" + `, e.g. ` + "`/location 13.08 80.27`" + `

*Important:*
- Always ensure your safety first
- Provide accurate information
- Include photos if safe to do so
- Emergency services will be notified for critical reports

Need immediate help? Contact emergency services: 112`

const (
	textIdleHint        = "👋 Hi! Use /start to begin or /report to report a disaster."
	textSessionExpired  = "❌ Session expired. Please start a new report with /report"
	textCancelled       = "❌ Report cancelled."
	textNothingToCancel = "There is no report in progress."
	textAskType         = "🔍 What type of disaster are you reporting?"
	textAskLocation     = "Click the button below to share your location:"
	textEmergency       = "🆘 *EMERGENCY REPORT*\n\nPlease share your current location immediately!"
	textBadLocation     = "❌ That location looks invalid. Please share your location again."
	textAskDescription  = "✅ Location received!\n\n📝 Please provide a description of the situation (or click 'Skip Description'):"
	textAskPhotos       = "📸 You can now send photos (optional) or click 'Submit Report' to finish:"
	textPhotoLimit      = "⚠️ Photo limit reached. Click 'Submit Report' to finish."
	textSubmitFailed    = "❌ Error submitting report. Please try again or contact support."
	textNoReports       = "📭 You haven't submitted any reports yet."
	textReportsFailed   = "❌ Unable to fetch your reports. Please try again later."
)

func mainMenuKeyboard() [][]string {
	return [][]string{
		{LabelReport},
		{LabelMyReports, LabelHelp},
		{LabelEmergency},
	}
}

func welcomeReply() Reply {
	return Reply{Text: welcomeText, Markdown: true, Keyboard: mainMenuKeyboard()}
}

func helpReply() Reply {
	return Reply{Text: helpText, Markdown: true}
}

func textReply(text string) Reply {
	return Reply{Text: text}
}

func disasterTypeReply() Reply {
	types := valueobject.SelectableDisasterTypes()
	var rows [][]Choice
	for i := 0; i < len(types); i += 2 {
		row := []Choice{{Label: string(types[i]), Data: TypeChoiceData(types[i])}}
		if i+1 < len(types) {
			row = append(row, Choice{Label: string(types[i+1]), Data: TypeChoiceData(types[i+1])})
		}
		rows = append(rows, row)
	}
	return Reply{Text: textAskType, Choices: rows}
}

func severityReply(t valueobject.DisasterType) Reply {
	levels := valueobject.Severities()
	var rows [][]Choice
	for i := 0; i < len(levels); i += 2 {
		row := []Choice{{Label: string(levels[i]), Data: SeverityChoiceData(levels[i])}}
		if i+1 < len(levels) {
			row = append(row, Choice{Label: string(levels[i+1]), Data: SeverityChoiceData(levels[i+1])})
		}
		rows = append(rows, row)
	}
	return Reply{
		Text:     fmt.Sprintf("✅ Disaster Type: *%s*\n\n📊 What is the severity level?", t),
		Markdown: true,
		Choices:  rows,
	}
}

func locationReplies(d Draft) []Reply {
	return []Reply{
		{
			Text: fmt.Sprintf("✅ Disaster Type: *%s*\n✅ Severity: *%s*\n\n📍 Please share your location:",
				d.DisasterType, d.Severity),
			Markdown: true,
		},
		{Text: textAskLocation, RequestLocation: true},
	}
}

func emergencyReply() Reply {
	return Reply{Text: textEmergency, Markdown: true, RequestLocation: true}
}

func descriptionReply() Reply {
	return Reply{
		Text:     textAskDescription,
		Keyboard: [][]string{{LabelSkipDescription}, {LabelReport, LabelCancel}},
	}
}

func photosReply() Reply {
	return Reply{
		Text:     textAskPhotos,
		Keyboard: [][]string{{LabelSkipPhotos}, {LabelSubmit}},
	}
}

func photoReceivedReply(total int) Reply {
	return textReply(fmt.Sprintf("✅ Photo received! (%d total)\nSend more photos or click 'Submit Report' to finish.", total))
}

func cancelledReply() Reply {
	return Reply{Text: textCancelled, Keyboard: mainMenuKeyboard()}
}

func submittedReply(r *entity.Report) Reply {
	location := "Not provided"
	if r.Location != nil {
		location = "Received"
	}
	followUp := "📋 Your report is being processed."
	if r.Severity.RequiresAlert() {
		followUp = "🚨 Emergency services have been notified!"
	}

	var b strings.Builder
	b.WriteString("✅ *Report Submitted Successfully!*\n\n")
	fmt.Fprintf(&b, "🆔 Report ID: `%s`\n", r.ID)
	fmt.Fprintf(&b, "🏷️ Type: %s\n", r.DisasterType)
	fmt.Fprintf(&b, "📊 Severity: %s\n", r.Severity)
	fmt.Fprintf(&b, "📍 Location: %s\n", location)
	fmt.Fprintf(&b, "⏰ Time: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(followUp)
	b.WriteString("\n\nThank you for helping keep the community safe! 🙏")

	return Reply{
		Text:     b.String(),
		Markdown: true,
		Keyboard: [][]string{{LabelReport}, {LabelMyReports, LabelHelp}},
	}
}

func reportsReply(reports []*entity.Report) Reply {
	if len(reports) == 0 {
		return textReply(textNoReports)
	}

	var b strings.Builder
	b.WriteString("📊 *Your Recent Reports:*\n\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "🆔 *%s*\n", r.ID)
		fmt.Fprintf(&b, "🏷️ %s\n", r.DisasterType)
		fmt.Fprintf(&b, "📊 %s\n", r.Severity)
		fmt.Fprintf(&b, "📅 %s\n", r.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "📋 %s\n\n", r.Status)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n"), Markdown: true}
}
