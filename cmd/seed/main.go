package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/alphabot-ai/confessional/internal/client"
	"github.com/alphabot-ai/confessional/internal/logging"
)

var posters = []struct {
	name   string
	avatar string
}{
	{"Night Owl", "🦉"},
	{"Quiet Fox", "🦊"},
	{"Lost Sock", "🧦"},
	{"Sunny", "🌻"},
	{"", ""},
}

var messages = []struct {
	category string
	text     string
}{
	{"confessions", "I still haven't returned the book I borrowed in 2019."},
	{"confessions", "I pretend to know the lyrics at concerts."},
	{"confessions", "I water my neighbour's plants and they think they're thriving on their own."},
	{"thoughts", "Why do we say 'slept like a baby' when babies wake up every two hours?"},
	{"thoughts", "Every time I open the fridge I forget what I wanted."},
	{"thoughts", "Some days the best thing you can do is go to bed early."},
	{"inspiration", "You don't have to be great to start, but you have to start to be great."},
	{"inspiration", "Small steps every day add up to something you can't see yet."},
	{"knowledge", "Honey never spoils. Archaeologists have found edible honey in ancient tombs."},
	{"knowledge", "Octopuses have three hearts and blue blood."},
	{"knowledge", "A group of flamingos is called a flamboyance."},
	{"", "Posted without a category, so it lands in the default one."},
}

var reportReasons = []string{"spam", "off-topic", "mean", ""}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Confessional server URL")
	adminUser := flag.String("admin", "admin", "admin username, used to check the report queue")
	adminPass := flag.String("password", "", "admin password (skips the report check when empty)")
	flag.Parse()

	logging.Init(logging.Config{Format: "console"})
	log := logging.WithComponent("seed")
	ctx := context.Background()
	c := client.New(*baseURL)

	log.Info().Str("url", *baseURL).Msg("seeding board")

	var ids []int64
	for _, m := range messages {
		p := posters[rand.Intn(len(posters))]
		msg, err := c.PostMessage(ctx, client.Post{
			Text:        m.text,
			Category:    m.category,
			DisplayName: p.name,
			Avatar:      p.avatar,
		})
		if err != nil {
			log.Warn().Err(err).Str("text", m.text).Msg("✗ failed to post")
			continue
		}
		ids = append(ids, msg.ID)
		log.Info().Int64("id", msg.ID).Str("category", string(msg.Category)).Str("by", msg.DisplayName).Msg("✓ posted")

		// Small delay to spread out timestamps
		time.Sleep(20 * time.Millisecond)
	}
	if len(ids) == 0 {
		log.Error().Msg("nothing was posted")
		os.Exit(1)
	}

	likes := 0
	for _, id := range ids {
		for i := rand.Intn(6); i > 0; i-- {
			if _, err := c.Like(ctx, id); err == nil {
				likes++
			}
		}
	}
	log.Info().Int("likes", likes).Msg("✓ added likes")

	// Report the first two messages so the admin queue has something in it
	reports := 0
	for i := 0; i < 2 && i < len(ids); i++ {
		for j := rand.Intn(3) + 1; j > 0; j-- {
			if _, err := c.Report(ctx, ids[i], reportReasons[rand.Intn(len(reportReasons))]); err == nil {
				reports++
			}
		}
	}
	log.Info().Int("reports", reports).Msg("✓ added reports")

	if *adminPass != "" {
		if err := c.Login(ctx, *adminUser, *adminPass); err != nil {
			log.Warn().Err(err).Msg("✗ admin login failed")
		} else {
			reported, err := c.Reports(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("✗ could not read reports")
			} else {
				log.Info().Int("reported_messages", len(reported)).Msg("✓ report queue checked")
			}
			_ = c.Logout(ctx)
		}
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Messages: %d\n", len(ids))
	fmt.Printf("Likes:    %d\n", likes)
	fmt.Printf("Reports:  %d\n", reports)
	fmt.Println("\nView at:", *baseURL)
}
