package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/app"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/spf13/pflag"
)

const passwordEnv = "INVENTORY_PASSWORD"

type cli struct {
	app    *app.App
	flags  *pflag.FlagSet
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

type command func(ctx context.Context, args []string) error

func (c *cli) commands() map[string]command {
	stores := c.app.Stores
	return map[string]command{
		"login":           c.login,
		"logout":          c.logout,
		"status":          c.status,
		"verify":          c.verify,
		"refresh":         c.refresh,
		"dashboard":       c.dashboard,
		"categories":      categoryCmd(stores.Categories).run(c),
		"suppliers":       supplierCmd(stores.Suppliers).run(c),
		"products":        c.products,
		"movements":       movementCmd(stores.StockMovements).run(c),
		"stock-movements": movementCmd(stores.StockMovements).run(c),
		"sales":           saleCmd(stores.Sales).run(c),
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) int {
	cmd, ok := c.commands()[args[0]]
	if !ok {
		fmt.Fprintf(c.errOut, "unknown command %q\n", args[0])
		c.flags.Usage()
		return exitUsage
	}
	if err := cmd(ctx, args[1:]); err != nil {
		return c.report(err)
	}
	return exitOK
}

// report prints err and maps it to an exit code.
func (c *cli) report(err error) int {
	var vErr *errors.ValidationError
	if errors.As(err, &vErr) {
		fmt.Fprintf(c.errOut, "invalid input: %v\n", vErr)
		return exitUsage
	}
	apiErr := errors.Classify(err)
	fmt.Fprintf(c.errOut, "error: %v\n", apiErr)
	if fields, ok := apiErr.Data.(map[string]any); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
		for field, msg := range fields {
			if field == "detail" || field == "code" {
				continue
			}
			fmt.Fprintf(c.errOut, "  %s: %v\n", field, msg)
		}
	}
	return exitError
}

func (c *cli) login(ctx context.Context, _ []string) error {
	creds, err := c.credentials()
	if err != nil {
		return err
	}
	if err := c.app.Session.Login(ctx, creds); err != nil {
		return err
	}
	displayAppname(c.out, c.app.Config.GetAppName())
	fmt.Fprintf(c.out, "Logged in as %s\n", creds.Username)
	return nil
}

func (c *cli) credentials() (token.Credentials, error) {
	username, _ := c.flags.GetString("username")
	password, _ := c.flags.GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" && c.in != nil {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return token.Credentials{}, errors.Wrapf(err, "read password")
		}
		password = strings.TrimRight(line, "\r\n")
	}
	creds := token.Credentials{Username: username, Password: password}
	if strings.TrimSpace(creds.Username) == "" {
		return creds, &errors.ValidationError{Field: "username", Message: "is required"}
	}
	if creds.Password == "" {
		return creds, &errors.ValidationError{Field: "password", Message: "is required"}
	}
	return creds, nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	c.app.Session.Logout(ctx)
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

type statusView struct {
	Status          string `json:"status" yaml:"status"`
	IsAuthenticated bool   `json:"is_authenticated" yaml:"is_authenticated"`
	UserID          string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Remaining       string `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

func (c *cli) status(ctx context.Context, _ []string) error {
	state := c.app.Session.State(ctx)
	view := statusView{Status: string(state.Status), IsAuthenticated: state.IsAuthenticated}
	if claims, err := c.app.Session.Claims(ctx); err == nil && claims != nil {
		view.UserID = claims.UserID
		if !claims.ExpiresAt.IsZero() {
			view.ExpiresAt = claims.ExpiresAt.Local().Format("2006-01-02 15:04:05")
			view.Remaining = claims.Remaining().Round(time.Second).String()
		}
	}
	return c.render(view, []string{"STATUS", "AUTHENTICATED", "USER", "EXPIRES", "REMAINING"}, func() [][]string {
		return [][]string{{view.Status, fmt.Sprint(view.IsAuthenticated), view.UserID, view.ExpiresAt, view.Remaining}}
	})
}

func (c *cli) verify(ctx context.Context, _ []string) error {
	if err := c.app.Session.Verify(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Access token is valid")
	return nil
}

func (c *cli) refresh(ctx context.Context, _ []string) error {
	if err := c.app.Session.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Access token refreshed")
	return nil
}

func (c *cli) dashboard(ctx context.Context, _ []string) error {
	dash := c.app.Stores.Dashboard
	if analytics, _ := c.flags.GetBool("analytics"); analytics {
		query, err := c.query()
		if err != nil {
			return err
		}
		data, err := dash.Analytics(ctx, query)
		if err != nil {
			return err
		}
		return c.renderData(data)
	}

	if err := dash.Fetch(ctx); err != nil {
		return err
	}
	summary := dash.Dashboard()
	return c.render(summary,
		[]string{"PRODUCTS", "CATEGORIES", "SUPPLIERS", "LOW STOCK", "TOTAL SALES"},
		func() [][]string {
			return [][]string{{
				fmt.Sprint(summary.TotalProducts),
				fmt.Sprint(summary.TotalCategories),
				fmt.Sprint(summary.TotalSuppliers),
				fmt.Sprint(summary.LowStockProducts),
				string(summary.TotalSales),
			}}
		})
}

func (c *cli) products(ctx context.Context, args []string) error {
	stores := c.app.Stores
	if len(args) > 0 {
		switch args[0] {
		case "low-stock":
			items, err := stores.Products.LowStock(ctx)
			if err != nil {
				return err
			}
			cmd := productCmd(stores.Products.Store)
			return c.render(items, cmd.headers, func() [][]string { return cmd.rows(items) })
		case "upload-image":
			return c.uploadImage(ctx, args[1:])
		}
	}
	return productCmd(stores.Products.Store).run(c)(ctx, args)
}

func (c *cli) uploadImage(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return &errors.ValidationError{Message: "usage: products upload-image <id> <image-path>"}
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(args[1])
	if err != nil {
		return &errors.ValidationError{Field: "image", Message: err.Error()}
	}
	defer f.Close()

	product, err := c.app.Stores.Products.UploadImage(ctx, id, filepath.Base(args[1]), f)
	if err != nil {
		return err
	}
	cmd := productCmd(c.app.Stores.Products.Store)
	return c.render(product, cmd.headers, func() [][]string { return cmd.rows(singleItem(product)) })
}

// query turns repeated --query key=value flags into URL values.
func (c *cli) query() (url.Values, error) {
	pairs, _ := c.flags.GetStringArray("query")
	query := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, &errors.ValidationError{Field: "query", Message: fmt.Sprintf("%q is not key=value", pair)}
		}
		query.Add(key, value)
	}
	return query, nil
}

// payload reads the --file JSON document, from stdin when the path is "-".
func (c *cli) payload() ([]byte, error) {
	path, _ := c.flags.GetString("file")
	switch path {
	case "":
		return nil, &errors.ValidationError{Field: "file", Message: "is required"}
	case "-":
		return io.ReadAll(c.in)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &errors.ValidationError{Field: "file", Message: err.Error()}
		}
		return data, nil
	}
}
