package notifier_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	notifier "github.com/bataryakit/notifier/sdk"
)

func Example_orderPlaced() {
	ctx := context.Background()
	client := notifier.New("http://localhost:8080", "your-api-key")

	// --- Confirm a new order and alert the admin, invoice attached ---
	res, err := client.Orders.Notify(ctx, "ORD-1001", true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("customer sent:", res.Customer.Sent, "admin sent:", res.Admin.Sent)
	if res.Customer.Degraded {
		fmt.Println("invoice could not be attached")
	}
}

func Example_events() {
	ctx := context.Background()
	client := notifier.New("http://localhost:8080", "your-api-key")

	// --- Low stock alert (admin facing) ---
	res, err := client.Notifications.Send(ctx, notifier.KindLowStock, map[string]any{
		"sku":       "CELL-18650",
		"title":     "18650 Hücre",
		"stock":     3,
		"threshold": 10,
	})
	if err != nil {
		log.Fatal(err)
	}
	if !res.Sent {
		fmt.Println("not sent:", res.Error)
	}
}

func Example_uploads() {
	ctx := context.Background()
	client := notifier.New("http://localhost:8080", "your-api-key")

	up, err := client.Uploads.Upload(ctx, "products", "pack.png", strings.NewReader("..."))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("stored at:", up.URL)

	if _, err := client.Uploads.Delete(ctx, up.URL); err != nil {
		log.Fatal(err)
	}
}
