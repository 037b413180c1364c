package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"bookbot/internal/chatbot"
	"bookbot/internal/logging"
	"bookbot/internal/nlu"
	"bookbot/internal/session"
	"bookbot/internal/store"
)

// ===== CHAT STYLES =====

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2).
			Foreground(lipgloss.Color("205")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	suggestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// runChat wires the full stack and drives the terminal conversation loop.
func runChat() error {
	st, err := store.Open(cfg.ResolvePath(cfg.Store.DBPath), cfg.CacheTTL())
	if err != nil {
		return err
	}
	defer st.Close()

	// Empty database on first run: pull in the catalog.
	stats, err := st.Stats()
	if err != nil {
		return err
	}
	catalogPath := cfg.ResolvePath(cfg.Store.CatalogPath)
	if stats.TotalBooks == 0 {
		count, err := store.Seed(st, catalogPath)
		if err != nil {
			return err
		}
		logger.Info("seeded empty catalog", zap.Int("books", count))
	}

	books, err := st.AllBooks()
	if err != nil {
		return err
	}
	processor := nlu.NewProcessor(books, cfg.NLU.FuzzyThreshold, cfg.NLU.TitleFuzzyThreshold)

	sessions := session.NewManager(session.Config{
		Timeout:         cfg.SessionTimeout(),
		CleanupInterval: cfg.CleanupInterval(),
		HistoryLimit:    cfg.Session.HistoryLimit,
	})
	sessions.Start()
	defer sessions.Stop()

	bot := chatbot.New(st, processor, sessions)

	// Live catalog reloads while chatting.
	if _, statErr := os.Stat(catalogPath); statErr == nil {
		watcher, werr := store.NewWatcher(st, catalogPath, func(count int, rerr error) {
			if rerr != nil {
				return
			}
			if refreshErr := bot.RefreshCatalog(); refreshErr != nil {
				logging.Boot("catalog refresh after reload failed: %v", refreshErr)
			}
		})
		if werr != nil {
			logger.Warn("catalog watcher unavailable", zap.Error(werr))
		} else {
			defer watcher.Close()
		}
	}

	sessionID := sessions.Create("")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println()
		fmt.Println(botStyle.Render("Tạm biệt! Hẹn gặp lại."))
		os.Exit(0)
	}()

	fmt.Println(bannerStyle.Render("📚 BookBot — trợ lý cửa hàng sách"))
	fmt.Println(suggestStyle.Render("Gõ tin nhắn để trò chuyện. Lệnh: /new (phiên mới), /stats, /quit"))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("bạn> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "/exit":
			fmt.Println(botStyle.Render("Tạm biệt! Hẹn gặp lại."))
			return nil
		case "/new":
			processor.ClearContext(sessionID)
			sessionID = sessions.Create("")
			fmt.Println(suggestStyle.Render("Đã bắt đầu phiên trò chuyện mới."))
			continue
		case "/stats":
			printSessionStats(sessions)
			continue
		}

		resp, err := bot.ProcessMessage(input, sessionID)
		if err != nil {
			// Session likely expired mid-conversation; start over once.
			sessionID = sessions.Create("")
			resp, err = bot.ProcessMessage(input, sessionID)
			if err != nil {
				fmt.Println(errorStyle.Render("Lỗi: " + err.Error()))
				continue
			}
		}

		fmt.Println(botStyle.Render("bot> " + resp.Message))
		if len(resp.Suggestions) > 0 {
			fmt.Println(suggestStyle.Render("gợi ý: " + strings.Join(resp.Suggestions, " | ")))
		}
		fmt.Println()
	}
	return scanner.Err()
}

func printSessionStats(sessions *session.Manager) {
	s := sessions.Stats()
	fmt.Println(suggestStyle.Render(fmt.Sprintf(
		"Phiên: tổng %d, đang hoạt động %d, đang đặt hàng %d, hết hạn %d",
		s.Total, s.Active, s.Ordered, s.Expired)))
}
