package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/geoquiz/internal/domain"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

// cities is the target pool for simulated world games
var cities = []domain.GeoPoint{
	{Latitude: 47.3769, Longitude: 8.5417},    // Zurich
	{Latitude: 46.9480, Longitude: 7.4474},    // Bern
	{Latitude: 48.8566, Longitude: 2.3522},    // Paris
	{Latitude: 51.5074, Longitude: -0.1278},   // London
	{Latitude: 40.7128, Longitude: -74.0060},  // New York
	{Latitude: 35.6762, Longitude: 139.6503},  // Tokyo
	{Latitude: -33.8688, Longitude: 151.2093}, // Sydney
	{Latitude: -23.5505, Longitude: -46.6333}, // Sao Paulo
	{Latitude: 55.7558, Longitude: 37.6173},   // Moscow
	{Latitude: 30.0444, Longitude: 31.2357},   // Cairo
	{Latitude: 19.4326, Longitude: -99.1332},  // Mexico City
	{Latitude: 28.6139, Longitude: 77.2090},   // New Delhi
	{Latitude: 1.3521, Longitude: 103.8198},   // Singapore
	{Latitude: 64.1466, Longitude: -21.9426},  // Reykjavik
	{Latitude: -34.6037, Longitude: -58.3816}, // Buenos Aires
}

func playerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// makeSubmission builds a simulated game. skill in [0,1) controls how far
// guesses land from the target.
func makeSubmission(userID, gameType string, rounds int, skill float64) domain.GameSubmission {
	sub := domain.GameSubmission{
		UserID:          userID,
		GameType:        gameType,
		DurationSeconds: int64(rand.Intn(240) + 30),
		Rounds:          make([]domain.RoundSubmission, 0, rounds),
	}

	for i := 0; i < rounds; i++ {
		target := cities[rand.Intn(len(cities))]

		// Rare timeouts keep the penalty path exercised
		if rand.Float64() < 0.03 {
			sub.Rounds = append(sub.Rounds, domain.RoundSubmission{TimedOut: true})
			continue
		}

		// Guess scatters around the target, tighter for skilled players
		spread := (1.0 - skill) * 15.0
		guess := domain.GeoPoint{
			Latitude:  target.Latitude + (rand.Float64()-0.5)*spread,
			Longitude: target.Longitude + (rand.Float64()-0.5)*spread,
		}
		sub.Rounds = append(sub.Rounds, domain.RoundSubmission{
			Target: &target,
			Guess:  &guess,
		})
	}

	return sub
}

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-results", "Kafka topic")
	gameType := flag.String("game-type", "world:cities", "Game type to submit results for")
	totalPlayers := flag.Int("players", 1000, "Total number of players to simulate")
	gamesPerSecond := flag.Int("rate", 50, "Games per second")
	roundsPerGame := flag.Int("rounds", 5, "Rounds per game")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	initialOnly := flag.Bool("initial-only", false, "Only send one game per player, no continuous updates")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  🌍 Game Result Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Game Type:        %s\n", *gameType)
	fmt.Printf("  Total Players:    %d\n", *totalPlayers)
	fmt.Printf("  Games/sec:        %d\n", *gamesPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Stable per-player skill so the leaderboard develops a shape
	skills := make([]float64, *totalPlayers)
	for i := range skills {
		skills[i] = rand.Float64()
	}

	sendSubmission := func(sub domain.GameSubmission) {
		data, err := json.Marshal(sub)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(sub.UserID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	// Seed every player with one game
	fmt.Printf("Seeding %d players with one game each...\n", *totalPlayers)
	for i := 0; i < *totalPlayers; i++ {
		sendSubmission(makeSubmission(playerName(i), *gameType, *roundsPerGame, skills[i]))

		if (i+1)%100 == 0 || i+1 == *totalPlayers {
			progress := float64(i+1) / float64(*totalPlayers) * 100
			fmt.Printf("\r  Progress: %d/%d players (%.1f%%)", i+1, *totalPlayers, progress)
		}
	}
	fmt.Printf("\n✓ Seeded %d players\n\n", *totalPlayers)

	if *initialOnly {
		fmt.Println("Initial-only mode: Exiting after seeding players")
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
		return
	}

	// Start continuous games
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Starting continuous games (%d/sec)\n", *gamesPerSecond)
	fmt.Println("Active players replay more often (to create ranking movement)")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*gamesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var gameCount int64

	shutdown := func(reason string) {
		fmt.Printf("\n\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			// 70% of games come from the most active fifth of players
			var playerIdx int
			active := *totalPlayers / 5
			if active > 0 && rand.Intn(100) < 70 {
				playerIdx = rand.Intn(active)
			} else {
				playerIdx = rand.Intn(*totalPlayers)
			}

			sendSubmission(makeSubmission(playerName(playerIdx), *gameType, *roundsPerGame, skills[playerIdx]))
			atomic.AddInt64(&gameCount, 1)

		case <-statsTicker.C:
			games := atomic.LoadInt64(&gameCount)
			success := atomic.LoadInt64(&successCount)
			errors := atomic.LoadInt64(&errorCount)
			fmt.Printf("[%s] Games: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				games,
				success,
				errors,
			)
		}
	}
}
