package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/api"
	"github.com/stockplus/backend/server"
	"github.com/urfave/cli"
)

// @title Stock Plus backend API
// @version 0.1
// @description Orders and M-Pesa payments.

// @BasePath /
// @schemes http https

// @securityDefinitions.apiKey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load("dev.env")

	app := cli.NewApp()
	app.Name = "Stock Plus backend"
	app.Version = "1.00"
	app.Compiled = time.Now()
	app.Commands = []cli.Command{
		{
			Name:  "backend-up",
			Usage: "This command starts the backend service",
			Action: func(c *cli.Context) error {
				StartServer(api.GetRoutes())
				return nil
			},
		},
		{
			Name:  "migrate",
			Usage: "This command creates the database tables",
			Action: func(c *cli.Context) error {
				ctx := server.GetAppContext()
				ctx.CreateMySQLConnection()
				defer ctx.Context.SQLConn.Close()
				return ctx.Migrate(context.Background())
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func StartServer(routes []*server.Route) {
	ctx := server.GetAppContext()
	ctx.CreateMySQLConnection()
	ctx.CreateSMTPConnection()
	ctx.CreateMpesaIntegration()

	server.UpServer(routes, ctx)
}
