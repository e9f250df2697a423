// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of himalia.
//
// himalia is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// himalia is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with himalia. If not, see <http://www.gnu.org/licenses/>.

// Command himalia is the node and wallet CLI for the Himalia blockchain.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sciencefidelity/himalia/internal/log"
	"github.com/sciencefidelity/himalia/internal/p2p"
)

const (
	dataDir     = "data"
	blockchainFile = "blockchain.db"
)

var logLevel string

func main() {
	viper.SetDefault("node_address", p2p.DefaultCentralNode)
	viper.SetEnvPrefix("himalia")
	viper.AutomaticEnv()
	// NODE_ADDRESS is bound unprefixed to keep operators' existing env files working.
	_ = viper.BindEnv("node_address", "NODE_ADDRESS")

	root := &cobra.Command{
		Use:   "himalia",
		Short: "A minimal UTXO-model proof-of-work blockchain node",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newCreateBlockchainCmd(),
		newCreateWalletCmd(),
		newGetBalanceCmd(),
		newListAddressesCmd(),
		newSendCmd(),
		newPrintChainCmd(),
		newReindexUTXOCmd(),
		newStartNodeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
