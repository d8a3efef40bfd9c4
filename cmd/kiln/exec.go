package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kiln/internal/bytecode"
)

var execCmd = &cobra.Command{
	Use:   "exec image type method [args...]",
	Short: "Instantiate a type from an image and call one of its methods",
	Long: `Load a .kbc or .kar image, create an instance of type (running its
field initialisers) and call method with integer arguments. The result
is printed on stdout.`,
	Args: cobra.MinimumNArgs(3),
	RunE: execExecution,
}

func init() {
	execCmd.Flags().Int("limit", 0, "instruction budget per call (0 = one million)")
}

func execExecution(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	img, err := bytecode.ReadFile(args[0])
	if err != nil {
		return err
	}
	var typ *bytecode.Type
	for i := range img.Types {
		if img.Types[i].Name == args[1] {
			typ = &img.Types[i]
			break
		}
	}
	if typ == nil {
		return fmt.Errorf("%s: no type %q", args[0], args[1])
	}
	if typ.Interface {
		return fmt.Errorf("%s is an interface", typ.Name)
	}

	callArgs := make([]int64, 0, len(args)-3)
	for _, a := range args[3:] {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
		callArgs = append(callArgs, v)
	}

	obj, err := bytecode.NewObject(typ, limit)
	if err != nil {
		return fmt.Errorf("init %s: %w", typ.Name, err)
	}
	result, err := obj.Call(args[2], limit, callArgs...)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", typ.Name, args[2], err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}
