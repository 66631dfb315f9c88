package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const shellHelp = `commands:
  list                      show the connections matching the search
  search [term]             filter by name or relationship, no term clears the filter
  new                       create a connection and edit it
  open <id>                 view a connection
  show                      print the selected connection
  edit                      edit the selected connection
  set <field> <value>       set a field of the draft
  set <list> <i> <value>    set an item of ctos or futureTalkingPoints
  add <list>                append an empty item to a list
  rm <list> <i>             remove an item from a list
  save                      save the draft
  delete                    delete the selected connection
  close                     close the detail view and discard the draft
  suggest [id]              get talking points for a connection
  quit                      leave`

// RunShell reads dashboard commands line by line from in and writes the results to out until
// the input ends or the quit command is read. Failed commands are reported and the shell goes on.
func RunShell(ctx context.Context, s *Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "%s> ", s.Mode())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := execute(ctx, s, line, out); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
		fmt.Fprintf(out, "%s> ", s.Mode())
	}
	return errors.Wrap(scanner.Err(), "read commands")
}

func execute(ctx context.Context, s *Session, line string, out io.Writer) error {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)
	switch command {
	case "help":
		fmt.Fprintln(out, shellHelp)
	case "list":
		for _, c := range s.Visible() {
			fmt.Fprintf(out, "%s  %s (%s) [%s]\n", c.ID, c.Name, c.Relationship, c.Importance)
		}
	case "search":
		s.SetSearch(rest)
	case "new":
		c, err := s.New(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", c.ID)
	case "open":
		if len(args) != 1 {
			return errors.New("usage: open <id>")
		}
		return s.Open(args[0])
	case "show":
		c, ok := s.Selected()
		if !ok {
			return ErrNothingSelected
		}
		fmt.Fprintf(out, "id: %s\nname: %s\nrelationship: %s\nimportance: %s\nlastContact: %s\nnextContact: %s\nnotes: %s\n",
			c.ID, c.Name, c.Relationship, c.Importance, c.LastContact, c.NextContact, c.Notes)
		fmt.Fprintf(out, "ctos: %s\nfutureTalkingPoints: %s\navatar: %s\n",
			strings.Join(c.CTOs, "; "), strings.Join(c.FutureTalkingPoints, "; "), AvatarURL(c.ID))
	case "edit":
		return s.Edit()
	case "set":
		return set(s, rest)
	case "add":
		if len(args) != 1 {
			return errors.New("usage: add <list>")
		}
		return s.AddItem(args[0])
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: rm <list> <i>")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "index")
		}
		return s.RemoveItem(args[0], index)
	case "save":
		if err := s.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "saved")
	case "delete":
		if err := s.Delete(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "deleted")
	case "close":
		s.Close()
	case "suggest":
		id := rest
		if id == "" {
			if c, ok := s.Selected(); ok {
				id = c.ID
			}
		}
		suggestion, err := s.Suggest(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, suggestion)
	default:
		return errors.Errorf("unknown command %q, try help", command)
	}
	return nil
}

// set handles "set <field> <value>" and "set <list> <i> <value>".
func set(s *Session, rest string) error {
	field, value, found := strings.Cut(rest, " ")
	if !found && field == "" {
		return errors.New("usage: set <field> <value>")
	}
	if field != ListCTOs && field != ListFutureTalkingPoints {
		return s.SetField(field, strings.TrimSpace(value))
	}
	position, item, _ := strings.Cut(strings.TrimSpace(value), " ")
	index, err := strconv.Atoi(position)
	if err != nil {
		return errors.New("usage: set <list> <i> <value>")
	}
	return s.SetItem(field, index, strings.TrimSpace(item))
}
