package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/stats"
	"github.com/larkvi/esgrade/internal/store"
)

const (
	raterHelp = `Available commands:
/help - Show this message`

	adminHelp = `Available commands:
/averages - Global average score per dimension
/ranking [code] - Top organizations, optionally for one dimension (GOV, SOC, ENV)
/scorecard <org_id> - Per-dimension averages for one organization
/help - Show this message

Examples:
/ranking
/ranking ENV
/scorecard 42`
)

type commandHandler func(*tgbotapi.Message) error

func (b *Bot) routeCommonCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start": b.handleStart,
		"help":  b.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"averages":  b.handleAverages,
		"ranking":   b.handleRanking,
		"scorecard": b.handleScorecard,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	cmd := msg.Command()

	if handler, ok := b.routeCommonCommands(cmd); ok {
		if err := handler(msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if b.admins[msg.From.ID] {
		if handler, ok := b.routeAdminCommands(cmd); ok {
			if err := handler(msg); err != nil {
				logger.Error.Printf("Command error: %v", err)
				b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
			}
		}
		return
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	var text string
	if b.admins[msg.From.ID] {
		text = adminHelp
	} else {
		text = raterHelp
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Send /help for the list of commands.")
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := "Hi! I report evaluation statistics.\n\n"
	if b.admins[msg.From.ID] {
		text += "You are an admin. Use /help for the list of commands."
	} else {
		text += "Stats commands are admin-only."
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleAverages(msg *tgbotapi.Message) error {
	dims, err := b.store.ListDimensions()
	if err != nil {
		return fmt.Errorf("failed to list dimensions: %w", err)
	}

	rows, err := b.store.FetchResponseStats(store.StatFilter{SubmittedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	averages := stats.DimensionAverages(dims, rows)

	var sb strings.Builder
	sb.WriteString("Global averages (submitted only):\n")
	for _, avg := range averages {
		if avg.Average == nil {
			sb.WriteString(fmt.Sprintf("%s: no data\n", avg.DimensionName))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %.2f (%d evaluations)\n", avg.DimensionName, *avg.Average, avg.TotalEvaluations))
	}

	return b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleRanking(msg *tgbotapi.Message) error {
	filter := store.StatFilter{SubmittedOnly: true}
	dimensionName := ""

	args := strings.Fields(msg.CommandArguments())
	if len(args) > 0 {
		code := strings.ToUpper(args[0])
		dim, err := b.store.GetDimensionByCode(code)
		if err != nil {
			return fmt.Errorf("failed to look up dimension: %w", err)
		}
		if dim == nil {
			return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Unknown dimension code %q. Use GOV, SOC or ENV.", code))
		}
		filter.DimensionID = &dim.ID
		dimensionName = dim.Name
	}

	rows, err := b.store.FetchResponseStats(filter)
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	ranking := stats.Ranking(rows, b.config.Stats.RankingLimit, dimensionName)
	if len(ranking) == 0 {
		return b.sendMessage(msg.Chat.ID, "No submitted evaluations yet.")
	}

	var sb strings.Builder
	if dimensionName != "" {
		sb.WriteString(fmt.Sprintf("Top organizations, %s:\n", dimensionName))
	} else {
		sb.WriteString("Top organizations, overall:\n")
	}
	for _, entry := range ranking {
		sb.WriteString(fmt.Sprintf("%d. %s: %.2f (%d evaluations)\n", entry.Rank, entry.OrganizationName, entry.Average, entry.TotalEvaluations))
	}

	return b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleScorecard(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return b.sendMessage(msg.Chat.ID, "Usage: /scorecard <org_id>")
	}

	orgID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Invalid organization id %q", args[0]))
	}

	org, err := b.store.GetOrganization(orgID)
	if err != nil {
		return fmt.Errorf("failed to look up organization: %w", err)
	}
	if org == nil {
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("No organization with id %d", orgID))
	}

	dims, err := b.store.ListDimensions()
	if err != nil {
		return fmt.Errorf("failed to list dimensions: %w", err)
	}

	rows, err := b.store.FetchResponseStats(store.StatFilter{OrganizationID: &orgID, SubmittedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	scorecard := stats.Scorecard(dims, rows)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s, %s):\n", org.Name, org.City, org.Region))
	for _, avg := range scorecard {
		if avg.Average == nil {
			sb.WriteString(fmt.Sprintf("%s: no data\n", avg.DimensionName))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %.2f (%d evaluations)\n", avg.DimensionName, *avg.Average, avg.TotalEvaluations))
	}

	return b.sendMessage(msg.Chat.ID, sb.String())
}
