// main is a test program to verify APRS-IS connectivity and decoding.
// It connects to a relay, prints each decoded aircraft beacon for a
// fixed duration and reports a summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/ogn-scope/pkg/aprs"
)

func main() {
	server := flag.String("server", aprs.DefaultServer, "APRS-IS relay address")
	callsign := flag.String("callsign", "OGNPROBE", "Login callsign")
	filter := flag.String("filter", "r/48.0/11.0/300", "Server-side filter spec")
	duration := flag.Duration("duration", 30*time.Second, "How long to listen")
	flag.Parse()

	log.Println("OGN APRS-IS Probe")
	log.Println("=====================================")
	log.Printf("Server:   %s", *server)
	log.Printf("Callsign: %s", *callsign)
	log.Printf("Filter:   %s", *filter)
	log.Printf("Duration: %s", *duration)
	log.Println("=====================================")

	client := aprs.NewClient(aprs.ClientConfig{
		Server:   *server,
		Callsign: *callsign,
		Passcode: -1,
		Filter:   *filter,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var lines, comments, reports, decodeErrors int
	err := client.Run(ctx, func(line string) {
		lines++
		msg, err := aprs.ParseLine(line)
		if err != nil {
			decodeErrors++
			return
		}
		switch msg.Kind {
		case aprs.KindComment:
			comments++
		case aprs.KindReport:
			reports++
			printReport(msg.Report)
		}
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatalf("Stream failed: %v", err)
	}

	log.Println("=====================================")
	log.Printf("Lines received:   %d", lines)
	log.Printf("Server comments:  %d", comments)
	log.Printf("Aircraft beacons: %d", reports)
	log.Printf("Decode errors:    %d", decodeErrors)
}

func printReport(rep *aprs.Report) {
	log.Printf("%-12s %-10s %9.4f°N %9.4f°E  alt %-9s spd %-11s climb %-9s via %s",
		rep.Address.String(), rep.AircraftType.String(),
		rep.Latitude, rep.Longitude,
		optional(rep.AltitudeM, "%.0f m"),
		optional(rep.SpeedKmh, "%.0f km/h"),
		optional(rep.ClimbMps, "%+.1f m/s"),
		rep.Receiver)
}

// optional formats a pointer field, standing in dashes when absent.
func optional(v *float64, format string) string {
	if v == nil {
		return "-----"
	}
	return fmt.Sprintf(format, *v)
}
