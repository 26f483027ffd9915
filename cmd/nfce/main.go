package main

import (
	"context"
	"nfce-backend/cmd/nfce/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
