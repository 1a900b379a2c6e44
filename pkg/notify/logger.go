package notify

import (
	"context"
	"log"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"gopkg.in/natefinch/lumberjack.v2"
)

type EventLogger struct {
	// EventLogger receives zledger.Message via Rec
	Rec chan zledger.Message
	// and logs them via Log
	Log *log.Logger
}

// Implements zledger.MessageSubscriber
func (l EventLogger) GetChan() chan zledger.Message {
	return l.Rec
}

// Implements conductor.Service
func (l EventLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				close(l.Rec)
				stopped <- true
				return
			case msg := <-l.Rec:
				l.Log.Printf("%s (%s): %s\n",
					msg.EventType,
					msg.ID,
					msg.Message)
			}
		}
	}()
	return nil
}

func NewEventLogger(filename string) EventLogger {
	return EventLogger{
		make(chan zledger.Message),
		log.New(&lumberjack.Logger{
			Filename: filename,
			Compress: true,
		}, "", log.Ltime|log.Lmicroseconds),
	}
}
