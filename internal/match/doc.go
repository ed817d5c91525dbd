// Package match implements the two-part memory-matching game.
//
// Each part deals sixteen cards: a sign card and a label card for each of
// eight catalog signs. The player reveals cards two at a time; after a settle
// delay the pair resolves as a match or flips back, costing one move either
// way. A part ends when all pairs are matched (PartComplete), when the move
// budget runs out, or when the countdown reaches zero (Failed).
//
// Completing part 1 starts part 2 after a short transition. Failing part 1
// ends the game immediately; part 2 is never dealt.
//
// # Events
//
// Every transition goes through Engine.Apply. Player input (EventReveal) and
// scheduled callbacks (EventTick, EventSettle, EventNextPart) are the same
// kind of message. Scheduled events carry the generation they were created
// in; the generation changes on every part start and every terminal
// transition, so a timer that fires late is ignored.
package match
