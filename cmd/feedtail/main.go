// feedtail follows one scope's feed: it loads the snapshot over REST,
// subscribes to the scope's room and logs every change.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"broadcast/internal/feedclient"
	"broadcast/internal/geo"

	log "github.com/sirupsen/logrus"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "server base URL")
	scopeFlag := flag.String("scope", "home", `scope to follow, "home" or "type:value" (e.g. ward:Westlands)`)
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	scope, err := geo.ParseScope(*scopeFlag)
	if err != nil {
		log.Fatalf("scope: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := feedclient.Dial(ctx, *server)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer sub.Close()

	rec := feedclient.NewReconciler(feedclient.NewClient(*server, nil), sub)
	if err := rec.SetScope(ctx, scope); err != nil {
		log.Fatalf("load %s: %v", scope, err)
	}
	printFeed(rec, "snapshot")

	rec.Run(ctx, sub.Events(), sub.Resync(), func() { printFeed(rec, "update") })
	log.Info("bye")
}

func printFeed(rec *feedclient.Reconciler, reason string) {
	posts := rec.Snapshot()
	log.WithFields(log.Fields{"scope": rec.Scope().String(), "posts": len(posts)}).Info(reason)
	for _, p := range posts {
		author := p.UserName
		if p.User != nil {
			author = p.User.NickName
		}
		log.WithFields(log.Fields{
			"id":       p.Pid,
			"author":   author,
			"likes":    len(p.Likes),
			"comments": p.CommentsCount,
		}).Info(p.Caption)
	}
}
