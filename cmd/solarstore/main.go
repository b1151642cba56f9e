package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/solarmart/solarmart-client/internal/address"
	"github.com/solarmart/solarmart-client/internal/authapi"
	"github.com/solarmart/solarmart-client/internal/cartapi"
	"github.com/solarmart/solarmart-client/internal/cartstore"
	"github.com/solarmart/solarmart-client/internal/catalog"
	"github.com/solarmart/solarmart-client/internal/credentials"
	"github.com/solarmart/solarmart-client/internal/httpclient"
	"github.com/solarmart/solarmart-client/internal/localstate"
	"github.com/solarmart/solarmart-client/internal/orders"
	"github.com/solarmart/solarmart-client/internal/uploads"
	"github.com/solarmart/solarmart-client/pkg/config"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/metrics"
)

const usage = `usage: solarstore <command> [flags]

commands:
  login      -email <email> -password <password>
  products   list the catalog
  addresses  list saved addresses
  cart       show the synchronized cart
  cart-add   -product <id> -qty <n>
  checkout   -address <id> [-payment card|bank_transfer]
  upload     -file <path> [-file <path> ...]
`

type app struct {
	logg    *logger.Logger
	creds   *credentials.Store
	auth    *authapi.Client
	cart    *cartstore.Store
	order   *orders.Client
	addr    *address.Client
	catalog *catalog.Client
	uploads *uploads.Tracker
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "solarstore"})
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "solarstore",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	db, err := localstate.Open(ctx, cfg.LocalDB, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local state database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logg.Error(ctx, "error closing local state database", err)
		}
	}()

	creds := credentials.NewStore(db, logg)
	if err := creds.Load(ctx); err != nil {
		logg.Warn(ctx, "stored credential could not be restored")
	}

	registry := prometheus.NewRegistry()
	pipeline, err := httpclient.New(httpclient.Params{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.RequestTimeout,
		Credentials: creds,
		Logger:      logg,
		Metrics:     metrics.NewPipelineMetrics(registry),
		Auth:        cfg.Auth,
		OnSessionExpired: func(reason string) {
			fmt.Fprintf(os.Stderr, "signed out: %s\n", reason)
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to build request pipeline", err)
		os.Exit(1)
	}

	cartClient, err := cartapi.NewClient(pipeline)
	if err != nil {
		logg.Error(ctx, "failed to build cart client", err)
		os.Exit(1)
	}
	cart, err := cartstore.NewStore(cartClient, db, cfg.Cart, logg)
	if err != nil {
		logg.Error(ctx, "failed to build cart store", err)
		os.Exit(1)
	}
	if err := cart.Restore(ctx); err != nil {
		logg.Warn(ctx, "cart snapshot could not be restored")
	}

	auth, err := authapi.NewClient(pipeline, creds, cart, logg)
	if err != nil {
		logg.Error(ctx, "failed to build auth client", err)
		os.Exit(1)
	}
	orderClient, err := orders.NewClient(pipeline, logg)
	if err != nil {
		logg.Error(ctx, "failed to build orders client", err)
		os.Exit(1)
	}
	addrClient, err := address.NewClient(pipeline)
	if err != nil {
		logg.Error(ctx, "failed to build address client", err)
		os.Exit(1)
	}
	catalogClient, err := catalog.NewClient(pipeline)
	if err != nil {
		logg.Error(ctx, "failed to build catalog client", err)
		os.Exit(1)
	}
	mediaClient, err := uploads.NewMediaClient(pipeline, nil)
	if err != nil {
		logg.Error(ctx, "failed to build media client", err)
		os.Exit(1)
	}
	tracker, err := uploads.NewTracker(uploads.Params{
		Media:       mediaClient,
		Logger:      logg,
		Metrics:     metrics.NewUploadMetrics(registry),
		Concurrency: cfg.Upload.Concurrency,
		MaxBytes:    int64(cfg.Upload.MaxFileMB) * 1024 * 1024,
	})
	if err != nil {
		logg.Error(ctx, "failed to build upload tracker", err)
		os.Exit(1)
	}

	a := &app{
		logg:    logg,
		creds:   creds,
		auth:    auth,
		cart:    cart,
		order:   orderClient,
		addr:    addrClient,
		catalog: catalogClient,
		uploads: tracker,
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "solarstore: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "products":
		return a.listProducts(ctx)
	case "addresses":
		return a.listAddresses(ctx)
	case "cart":
		return a.showCart(ctx)
	case "cart-add":
		return a.cartAdd(ctx, args)
	case "checkout":
		return a.checkout(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.auth.Login(ctx, authapi.LoginInput{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)

	if _, err := a.cart.Fetch(ctx); err != nil {
		a.logg.Warn(ctx, "cart could not be synchronized after login")
	}
	return nil
}

func (a *app) listProducts(ctx context.Context) error {
	products, err := a.catalog.Products(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		stock := fmt.Sprintf("%d in stock", p.AvailableQuantity)
		if !p.IsActive || p.AvailableQuantity == 0 {
			stock = "unavailable"
		}
		fmt.Printf("%-12s %-40s $%-10s %s\n", p.ID, p.Name,
			cartstore.CentsToDecimal(p.SalePriceCents).StringFixed(2), stock)
	}
	return nil
}

func (a *app) listAddresses(ctx context.Context) error {
	saved, err := a.addr.List(ctx)
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		fmt.Println("no saved addresses")
		return nil
	}
	for _, addr := range saved {
		marker := " "
		if addr.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-10s %s, %s %s %s\n", marker, addr.ID, addr.Label,
			addr.Line1, addr.City, addr.State, addr.PostalCode)
	}
	return nil
}

func (a *app) showCart(ctx context.Context) error {
	if _, err := a.cart.Fetch(ctx); err != nil {
		return err
	}
	current := a.cart.Cart()
	if current == nil || len(current.Items) == 0 {
		fmt.Println("cart is empty")
		return nil
	}

	for _, item := range current.Items {
		fmt.Printf("%-40s x%-3d $%s\n", item.Product.Name, item.Quantity,
			cartstore.CentsToDecimal(item.Product.SalePriceCents*item.Quantity).StringFixed(2))
	}
	totals := a.cart.Totals()
	fmt.Printf("\n%d items, %d units\n", totals.TotalItems, totals.TotalQuantity)
	fmt.Printf("subtotal  $%s\n", totals.Subtotal.StringFixed(2))
	if totals.TotalSavings.IsPositive() {
		fmt.Printf("savings   $%s\n", totals.TotalSavings.StringFixed(2))
	}
	if !a.cart.ReadyForCheckout() {
		fmt.Println("\nsome items are out of stock; adjust quantities before checkout")
	}
	return nil
}

func (a *app) cartAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
	productID := fs.String("product", "", "product id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return fmt.Errorf("-product is required")
	}

	item, err := a.cart.Add(ctx, *productID, *qty)
	if err != nil {
		return err
	}
	fmt.Printf("added %s x%d\n", item.Product.Name, item.Quantity)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	addressID := fs.String("address", "", "shipping address id")
	payment := fs.String("payment", string(orders.PaymentMethodCard), "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.cart.Fetch(ctx); err != nil {
		return err
	}
	if !a.cart.ReadyForCheckout() {
		return fmt.Errorf("cart is not ready for checkout")
	}

	order, err := a.order.Create(ctx, orders.CreateInput{
		ShippingAddressID: *addressID,
		PaymentMethod:     orders.PaymentMethod(*payment),
	})
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed, total $%s\n", order.ID,
		cartstore.CentsToDecimal(order.TotalCents).StringFixed(2))

	if err := a.cart.Clear(ctx); err != nil {
		a.logg.Warn(ctx, "cart could not be cleared after checkout")
	}
	return nil
}

type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var paths fileList
	fs.Var(&paths, "file", "file to upload (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("-file is required")
	}

	files := make([]uploads.File, 0, len(paths))
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		info, err := f.Stat()
		if err != nil {
			return err
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files = append(files, uploads.File{
			Name:     filepath.Base(path),
			MimeType: mimeType,
			Size:     info.Size(),
			Body:     f,
		})
	}

	session := a.uploads.Start(ctx, files)
	for event := range session.Events() {
		fmt.Printf("%-30s %3d%% %s\n", event.File.FileName, event.File.Progress, event.File.Status)
	}
	fmt.Printf("session %s\n", session.Status())
	if session.Status() != uploads.SessionStatusCompleted {
		return fmt.Errorf("upload session did not complete")
	}
	return nil
}
