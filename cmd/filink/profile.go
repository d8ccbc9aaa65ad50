package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/filink/filink/pkg/ioconfig"
)

func profileCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "profile",
		Short: "Manage named serial-port profiles",
	}
	root.AddCommand(profileListCommand())
	root.AddCommand(profileSaveCommand())
	root.AddCommand(profileShowCommand())
	return root
}

func profileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ioconfig.DefaultPath()
			if err != nil {
				return err
			}
			profiles, err := ioconfig.Load(path)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(profiles))
			for name := range profiles {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				p := profiles[name]
				fmt.Printf("%s\t%s\t%d baud\n", p.Name, p.Device, p.BaudRate)
			}
			return nil
		},
	}
}

func profileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the saved settings of one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ioconfig.DefaultPath()
			if err != nil {
				return err
			}
			profiles, err := ioconfig.Load(path)
			if err != nil {
				return err
			}
			p, ok := profiles[args[0]]
			if !ok {
				return fmt.Errorf("no such profile %q", args[0])
			}
			fmt.Printf("device:     %s\n", p.Device)
			fmt.Printf("baud:       %d\n", p.BaudRate)
			fmt.Printf("data bits:  %d\n", p.DataBits)
			fmt.Printf("parity:     %s\n", parityName(p.Parity))
			fmt.Printf("stop bits:  %d\n", p.StopBits)
			fmt.Printf("timeout:    %s\n", p.ReadTimeout)
			return nil
		},
	}
}

func profileSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the current --port/--baud/... flags as a named profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolvePortConfigFromFlagsOnly()
			if err != nil {
				return err
			}
			path, err := ioconfig.DefaultPath()
			if err != nil {
				return err
			}
			profiles, err := ioconfig.Load(path)
			if err != nil {
				return err
			}
			name := args[0]
			profiles[name] = ioconfig.Profile{Name: name, SerialConfig: cfg}
			return ioconfig.Save(path, profiles)
		},
	}
}
