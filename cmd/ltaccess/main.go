// Command ltaccess reads and deletes rows of a running LiteTable Access daemon.
//
// Rows are decoded through the columns given with --column:
//
//	ltaccess scan --column name=main:name --column age=main:age:int64 \
//	    --query 'age >= params.min' --param min=30 --limit 10
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(&session{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
