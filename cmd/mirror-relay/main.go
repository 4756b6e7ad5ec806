// Command mirror-relay runs the relay transport strategy's server side: a
// small UDP process that fans out each session's datagrams to every other
// subscriber of that session.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mycrl/mirror/internal/relayserver"
	"github.com/mycrl/mirror/internal/xlog"
)

func main() {
	var addr string

	cmd := &cobra.Command{
		Use:   "mirror-relay",
		Short: "Run the casting relay transport server",
		RunE: func(_ *cobra.Command, _ []string) error {
			log := xlog.For("cmd.mirror-relay")
			srv, err := relayserver.Listen(addr)
			if err != nil {
				return err
			}
			log.WithField("addr", addr).Info("relay server listening")
			return srv.Serve()
		},
	}
	cmd.Flags().StringVar(&addr, "listen", ":9500", "UDP address to listen on")

	if err := cmd.Execute(); err != nil {
		xlog.For("cmd.mirror-relay").WithError(err).Error("exiting")
		os.Exit(1)
	}
}
