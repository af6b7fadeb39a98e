package main

import (
	"fmt"
	"os"

	"github.com/nbs-erp/nbs-cli/internal/erp"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		case "version", "-v", "--version":
			fmt.Printf("NBS CLI v%s\n", erp.Version)
			fmt.Printf("%s, %s\n", erp.Author, erp.Year)
			os.Exit(0)
		}
	}

	config, err := erp.LoadConfig()
	if err != nil {
		fail(err)
	}

	logger, closeLog, err := erp.OpenLogger(config)
	if err != nil {
		fail(err)
	}
	defer closeLog()

	client := erp.NewClient(config)
	client.Logger = logger

	// No arguments or "tui" command -> launch TUI
	if len(os.Args) < 2 || os.Args[1] == "tui" {
		if err := erp.RunTUI(client); err != nil {
			closeLog()
			fail(err)
		}
		return
	}

	cmd := os.Args[1]

	// ping and config detect the connection themselves
	if cmd != "ping" && cmd != "config" {
		client.DetectConnection()
	}

	var cmdErr error
	switch cmd {
	case "ping":
		cmdErr = client.CmdPing()
	case "config":
		cmdErr = client.CmdConfig()
	case "so":
		cmdErr = client.CmdSO(os.Args[2:])
	case "dn":
		cmdErr = client.CmdDN(os.Args[2:])
	case "loans":
		cmdErr = client.CmdLoans(os.Args[2:])
	case "convert":
		cmdErr = client.CmdConvert(os.Args[2:])
	default:
		fmt.Printf("%sUnknown command: %s%s\n", erp.Red, cmd, erp.Reset)
		printUsage()
		closeLog()
		os.Exit(1)
	}

	if cmdErr != nil {
		logger.Error("command failed", "command", cmd, "error", cmdErr)
		closeLog()
		fail(cmdErr)
	}
}

func fail(err error) {
	fmt.Printf("%sError: %s%s\n", erp.Red, err, erp.Reset)
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`%sNBS CLI%s - loan conversion client for ERPNext

Usage: nbs-cli <command> [subcommand] [args...]

%sCommands:%s

  %stui%s                               Interactive terminal UI (default)
  %sping%s                              Test connection and authentication
  %sconfig%s                            Show current configuration
  %sversion%s                           Show version information

%sSales Orders:%s
  %sso list [--customer=X] [--status=X] [--convertible]%s
                                      List sales orders
  %sso get <name>%s                     Get SO details with items
  %sso promissory <name>%s              Create a Promissory Note from the SO

%sLoans:%s
  %sloans pending <so>%s                Pending loan waybills for a sales order
  %sloans list [--customer=X] [--status=X]%s
                                      List submitted loan waybills
  %sconvert <so> <lw> <line>=<qty> [...] [--dry-run]%s
                                      Convert loaned stock into a Delivery Note

%sDelivery Notes:%s
  %sdn list [--customer=X] [--status=X]%s
                                      List delivery notes
  %sdn get <name>%s                     Get delivery note details
  %sdn submit <name>%s                  Submit delivery note

%sExamples:%s
  nbs-cli ping
  nbs-cli so list --convertible
  nbs-cli loans pending SAL-ORD-2026-00012
  nbs-cli convert SAL-ORD-2026-00012 LW-0007 1=5 SYR-5ML=2

`,
		erp.Blue, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
	)
}
