package telegram

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unauthorizedReply = "Sorry, this bot serves a single operator."

// RegisterOperatorHandlers registers the operator commands and the bill status buttons.
// Messages from any chat other than operatorTelegramID are refused.
func RegisterOperatorHandlers(ctx context.Context, b *telebot.Bot, op *Operator, operatorTelegramID int64, baseLogger *logrus.Entry) {
	handle := func(command string, fn func(c telebot.Context) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			if c.Sender().ID != operatorTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(unauthorizedReply)
			}
			return fn(c)
		})
	}

	handle("/start", func(c telebot.Context) error {
		return c.Send("Hi " + c.Sender().FirstName + "! I keep track of your utility bills. Use /help to see the commands.")
	})

	handle("/help", func(c telebot.Context) error {
		text := helpText
		if op.ManualGeneration() {
			text += generateHelp
		}
		return c.Send(text+"`/help`\n - Show this message.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	handle("/providers", func(c telebot.Context) error {
		return c.Send(op.Providers(ctx))
	})

	handle("/add_provider", func(c telebot.Context) error {
		return c.Send(op.AddProvider(ctx, c.Args()))
	})

	handle("/edit_provider", func(c telebot.Context) error {
		return c.Send(op.EditProvider(ctx, c.Args()))
	})

	handle("/bills", func(c telebot.Context) error {
		text, markup := op.Bills(ctx, c.Args())
		if markup == nil {
			return c.Send(text)
		}
		return c.Send(text, &telebot.SendOptions{ReplyMarkup: markup})
	})

	handle("/set_amount", func(c telebot.Context) error {
		return c.Send(op.SetAmount(ctx, c.Args()))
	})

	handle("/overdue", func(c telebot.Context) error {
		return c.Send(op.Overdue(ctx))
	})

	if op.ManualGeneration() {
		handle("/generate", func(c telebot.Context) error {
			return c.Send(op.Generate(ctx))
		})
	}

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "callback",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != operatorTelegramID {
			handlerLogger.Warn("Unauthorized callback attempt")
			return c.Respond(&telebot.CallbackResponse{Text: unauthorizedReply})
		}
		return c.Respond(&telebot.CallbackResponse{Text: op.HandleCallback(ctx, c.Callback().Data)})
	})
}

const helpText = "Available commands:\n\n" +
	"`/providers`\n - List providers.\n\n" +
	"`/add_provider <name> <frequency> <dueDay> [defaultAmount]`\n - Add a provider. Use \\_ for spaces in the name. Frequency is MONTHLY, BI\\_MONTHLY or YEARLY.\n\n" +
	"`/edit_provider <id> <name> <frequency> <dueDay>`\n - Change a provider. Bills from the current month on are rebuilt.\n\n" +
	"`/bills [YYYY-MM]`\n - Bills of a month, the current one by default.\n\n" +
	"`/set_amount <billId> <amount>`\n - Fill in the amount of a bill.\n\n" +
	"`/overdue`\n - Unpaid bills that are due.\n\n"

const generateHelp = "`/generate`\n - Run the monthly generation now.\n\n"
