// Command espsim serves a fake ESP32 camera board (/dht, /led, /stream)
// so the panel can be run without hardware.
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/app"
	"github.com/dokzlo13/espanel/internal/logging"
	"github.com/dokzlo13/espanel/internal/simulator"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8081", "Listen address")
	temperature := flag.Float64("temperature", 21.0, "Reported temperature")
	humidity := flag.Float64("humidity", 45.0, "Reported humidity")
	failSensor := flag.Bool("fail-sensor", false, "Report a DHT read failure")
	streamDown := flag.Bool("stream-down", false, "Refuse camera stream requests")
	level := flag.String("log-level", "debug", "Log level")
	flag.Parse()

	logging.Setup(*level, false, true)

	board := simulator.NewBoard()
	board.SetReading(*temperature, *humidity)
	board.SetSensorFailure(*failSensor)
	board.SetStreamDown(*streamDown)

	server := &http.Server{
		Addr:    *addr,
		Handler: board.Handler(),
	}

	ctx := app.SignalContext()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Simulator shutdown error")
		}
	}()

	log.Info().Str("addr", *addr).Msg("Starting board simulator")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Simulator failed")
	}
}
