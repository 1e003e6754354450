package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/1001R/bpm/internal/amount"
	"github.com/1001R/bpm/internal/entity"
	"github.com/1001R/bpm/internal/usecase"
)

var notAllowedErr = errors.New("only parents can book transactions")

// Account binds a telegram user to a ledger account and a role.
type Account struct {
	ID     string
	Parent bool
}

type caller struct {
	userID  int64
	account Account
}

type commandHandler func(ctx context.Context, c caller, args string) (*reply, error)

type Bot struct {
	api      *tgbotapi.BotAPI
	accounts map[int64]Account

	idempotenceUsecase *usecase.Idempotence
	getUserstate       *usecase.GetUserstate
	saveUserstate      *usecase.SaveUserstate
	getBalance         *usecase.GetBalance
	getStatement       *usecase.GetStatement
	fetchPage          *usecase.FetchPage
	appendTransaction  *usecase.AppendTransaction

	commands map[string]commandHandler
}

func New(
	token string,
	accounts map[int64]Account,
	idempotenceUsecase *usecase.Idempotence,
	getUserstate *usecase.GetUserstate,
	saveUserstate *usecase.SaveUserstate,
	getBalance *usecase.GetBalance,
	getStatement *usecase.GetStatement,
	fetchPage *usecase.FetchPage,
	appendTransaction *usecase.AppendTransaction,
) (*Bot, error) {

	botApi, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:      botApi,
		accounts: accounts,

		idempotenceUsecase: idempotenceUsecase,
		getUserstate:       getUserstate,
		saveUserstate:      saveUserstate,
		getBalance:         getBalance,
		getStatement:       getStatement,
		fetchPage:          fetchPage,
		appendTransaction:  appendTransaction,

		commands: make(map[string]commandHandler),
	}

	b.Register("start", b.start)
	b.Register("balance", b.balance)
	b.Register("list", b.list)
	b.Register("page", b.page)
	b.Register("deposit", b.deposit)
	b.Register("withdraw", b.withdraw)

	return b, nil
}

func (b *Bot) Register(command string, handler commandHandler) {
	b.commands[command] = handler
}

func (b *Bot) Start(ctx context.Context) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = 60

	updates := b.api.GetUpdatesChan(config)
	go b.HandleUpdates(ctx, updates)
}

func (b *Bot) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		user := update.SentFrom()
		if user == nil {
			continue
		}
		account, known := b.accounts[user.ID]
		if !known {
			continue
		}
		c := caller{userID: user.ID, account: account}

		if ok, err := b.checkIfFirstHandle(update); err != nil {
			log.Println(err)
			continue
		} else if !ok {
			continue
		}

		if update.Message != nil {
			var (
				r   *reply
				err error
			)
			if update.Message.IsCommand() {
				handler, ok := b.commands[update.Message.Command()]
				if !ok {
					continue
				}
				r, err = handler(ctx, c, update.Message.CommandArguments())
			} else {
				r, err = b.continueDialog(ctx, c, update.Message.Text)
			}
			if err != nil {
				b.handleError(update.Message, err)
				continue
			}
			if r == nil {
				continue
			}

			message := tgbotapi.NewMessage(update.Message.Chat.ID, r.text)
			message.ReplyMarkup = r.inlineKeyboard

			if _, err := b.api.Send(message); err != nil {
				log.Println(err)
			}
		}

		if update.CallbackQuery != nil {
			ca := strings.SplitN(update.CallbackQuery.Data, " ", 2)
			if len(ca) != 2 {
				continue
			}

			handler, ok := b.commands[ca[0]]
			if !ok {
				continue
			}

			r, err := handler(ctx, c, ca[1])
			if err != nil {
				b.handleError(update.CallbackQuery.Message, err)
				continue
			}

			message := tgbotapi.NewEditMessageText(update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.Message.MessageID, r.text)
			message.ReplyMarkup = r.inlineKeyboard

			if _, err := b.api.Send(message); err != nil {
				log.Println(err)
			}
		}
	}
}

func (b *Bot) checkIfFirstHandle(update tgbotapi.Update) (bool, error) {
	id := "telegram"
	if update.Message != nil {
		id += strconv.FormatInt(update.Message.Chat.ID, 10) + strconv.Itoa(update.Message.MessageID)
	} else if update.CallbackQuery != nil {
		id += strconv.FormatInt(update.CallbackQuery.Message.Chat.ID, 10) + update.CallbackQuery.ID
	}
	return b.idempotenceUsecase.Execute(id)
}

func (b *Bot) start(ctx context.Context, c caller, _ string) (*reply, error) {
	balance, page, err := b.getStatement.Execute(ctx, c.account.ID, entity.Cursor{})
	if err != nil {
		return nil, err
	}

	text := "Balance: " + amount.Format(balance) + "\n\n" + historyText(page) + "\n\n"
	if c.account.Parent {
		text += "/balance /list /deposit /withdraw"
	} else {
		text += "/balance /list"
	}

	return &reply{text: text, inlineKeyboard: historyKeyboard(0, page)}, nil
}

func (b *Bot) balance(ctx context.Context, c caller, _ string) (*reply, error) {
	balance, err := b.getBalance.Execute(ctx, c.account.ID)
	if err != nil {
		return nil, err
	}
	return &reply{text: "Balance: " + amount.Format(balance)}, nil
}

func (b *Bot) list(ctx context.Context, c caller, _ string) (*reply, error) {
	return b.history(ctx, c, 0, entity.Cursor{})
}

func (b *Bot) page(ctx context.Context, c caller, args string) (*reply, error) {
	pageNo, cursor, err := parsePageArgs(args)
	if err != nil {
		return nil, err
	}
	return b.history(ctx, c, pageNo, cursor)
}

func (b *Bot) history(ctx context.Context, c caller, pageNo int, cursor entity.Cursor) (*reply, error) {
	page, err := b.fetchPage.Execute(ctx, c.account.ID, cursor)
	if err != nil {
		return nil, err
	}
	return &reply{text: historyText(page), inlineKeyboard: historyKeyboard(pageNo, page)}, nil
}

func (b *Bot) deposit(ctx context.Context, c caller, args string) (*reply, error) {
	return b.beginTransactionEntry(ctx, c, entity.KindDeposit, args)
}

func (b *Bot) withdraw(ctx context.Context, c caller, args string) (*reply, error) {
	return b.beginTransactionEntry(ctx, c, entity.KindWithdrawal, args)
}

func (b *Bot) beginTransactionEntry(_ context.Context, c caller, kind, args string) (*reply, error) {
	if !c.account.Parent {
		return nil, notAllowedErr
	}

	state := entity.UserState{Name: entity.EnterAmountState, Kind: kind}
	prompt := "Amount?"

	if args != "" {
		minor, err := amount.Parse(args)
		if err != nil {
			return nil, err
		}
		if minor == 0 {
			return nil, amount.InvalidAmountErr
		}
		state.Amount = &minor
		state.Name = entity.EnterDescriptionState
		prompt = "Description?"
	}

	if err := b.saveUserstate.Execute(c.userID, state); err != nil {
		return nil, err
	}
	return &reply{text: prompt}, nil
}

func (b *Bot) continueDialog(ctx context.Context, c caller, text string) (*reply, error) {
	state, err := b.getUserstate.Execute(c.userID)
	if err != nil {
		return nil, err
	}

	switch state.Name {
	case entity.EnterAmountState:
		minor, err := amount.Parse(strings.TrimSpace(text))
		if err != nil {
			return nil, err
		}
		if minor == 0 {
			return nil, amount.InvalidAmountErr
		}

		state.Amount = &minor
		state.Name = entity.EnterDescriptionState
		if err := b.saveUserstate.Execute(c.userID, state); err != nil {
			return nil, err
		}
		return &reply{text: "Description?"}, nil

	case entity.EnterDescriptionState:
		if state.Amount == nil {
			return nil, b.saveUserstate.Execute(c.userID, entity.UserState{})
		}

		// sign convention lives with the caller, not the codec
		signed := *state.Amount
		if state.Kind == entity.KindWithdrawal {
			signed = -signed
		}

		subjectID := strconv.FormatInt(c.userID, 10)
		if err := b.appendTransaction.Execute(ctx, c.account.ID, subjectID, signed, strings.TrimSpace(text)); err != nil {
			return nil, err
		}
		if err := b.saveUserstate.Execute(c.userID, entity.UserState{}); err != nil {
			return nil, err
		}

		balance, err := b.getBalance.Execute(ctx, c.account.ID)
		if err != nil {
			return nil, err
		}
		return &reply{text: "Booked. Balance: " + amount.Format(balance)}, nil
	}

	return nil, nil
}

func (b *Bot) handleError(message *tgbotapi.Message, err error) {
	var text string
	switch {
	case errors.Is(err, amount.InvalidAmountErr),
		errors.Is(err, entity.AccountNotFoundErr),
		errors.Is(err, notAllowedErr):
		text = err.Error()
	case errors.Is(err, entity.ConflictErr):
		text = "The ledger is busy, please try again"
	default:
		log.Println(err)
		text = "Something went wrong"
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(message.Chat.ID, text)); err != nil {
		log.Println(err)
	}
}

func historyText(page entity.Page) string {
	if len(page.Transactions) == 0 {
		return "No transactions"
	}

	var sb strings.Builder
	for _, t := range page.Transactions {
		fmt.Fprintf(&sb, "%s %s %s\n", t.Timestamp.Format("02.01.2006"), amount.Format(t.Amount), t.Description)
	}
	return sb.String()
}

func historyKeyboard(pageNo int, page entity.Page) *tgbotapi.InlineKeyboardMarkup {
	keyboard := newInlineKeyboard(2)

	if len(page.Transactions) == 0 {
		// stale cursor beyond the history, offer the way back
		if pageNo > 0 {
			keyboard.addButton("↩", "list 0")
		}
		return keyboard.markup()
	}

	if pageNo > 0 {
		keyboard.addButton("⬅️", pageCallback(pageNo-1, page.Newer()))
	}
	if !page.LastPage {
		keyboard.addButton("➡️", pageCallback(pageNo+1, page.Older()))
	}

	return keyboard.markup()
}
