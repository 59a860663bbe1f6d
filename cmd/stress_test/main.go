package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/restaurant-ordering/internal/adapter/storage"
	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/core/service"
)

const (
	defaultRedisAddr = "localhost:6379"
	userID           = "stress-user"
	requestID        = "stress-checkout"
	totalRequests    = 50
	queueSize        = 100
)

// staticMenu serves a fixed menu so the run only depends on Redis.
type staticMenu map[string]domain.MenuItem

func (m staticMenu) GetMenuSnapshot(ctx context.Context, itemIDs []string) (domain.MenuSnapshot, error) {
	snapshot := domain.MenuSnapshot{}
	for _, id := range itemIDs {
		if item, ok := m[id]; ok {
			snapshot[id] = item.Entry()
		}
	}
	return snapshot, nil
}

func (m staticMenu) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	item, ok := m[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = defaultRedisAddr
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "checkout:"+userID+":"+requestID)

	menu := staticMenu{
		"margherita": {ID: "margherita", Name: "Margherita", Price: decimal.RequireFromString("12.50"), IsAvailable: true},
		"tiramisu":   {ID: "tiramisu", Name: "Tiramisu", Price: decimal.RequireFromString("6.00"), IsAvailable: true},
	}

	redisAdapter := storage.NewRedisAdapter(rdb)
	cartService := service.NewCartService(redisAdapter, menu, redisAdapter, zap.NewNop(), queueSize)
	defer cartService.Close()

	if err := cartService.Clear(ctx, userID); err != nil {
		logger.Fatal("failed to clear cart", zap.Error(err))
	}
	if err := cartService.AddItem(ctx, userID, "margherita", 2); err != nil {
		logger.Fatal("failed to add item", zap.Error(err))
	}
	if err := cartService.AddItem(ctx, userID, "tiramisu", 1); err != nil {
		logger.Fatal("failed to add item", zap.Error(err))
	}

	// Drain the checkout queue in background
	var queued atomic.Int32
	go func() {
		for range cartService.GetOrderQueue() {
			queued.Add(1)
		}
	}()

	var successCount atomic.Int32
	var duplicateCount atomic.Int32

	// Spawn concurrent checkouts that all retry the same request
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := cartService.Checkout(ctx, userID, requestID)
			if err == nil {
				successCount.Add(1)
			} else {
				duplicateCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)
	time.Sleep(100 * time.Millisecond)

	success := successCount.Load()
	duplicates := duplicateCount.Load()

	fmt.Println("========== CHECKOUT STRESS RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", duplicates)
	fmt.Printf("Orders Queued:    %d\n", queued.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=============================================")

	if success == 1 && duplicates == totalRequests-1 {
		fmt.Println("PASS: Exactly one checkout accepted")
	} else {
		fmt.Printf("FAIL: Expected 1 success/%d rejected, got %d/%d\n", totalRequests-1, success, duplicates)
	}

	view, err := cartService.View(ctx, userID)
	if err != nil {
		logger.Fatal("failed to read cart", zap.Error(err))
	}
	if len(view.Items) == 0 {
		fmt.Println("PASS: Ordered lines removed from cart")
	} else {
		fmt.Printf("FAIL: Expected empty cart, got %d lines\n", len(view.Items))
	}
}
