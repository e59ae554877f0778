package verifier

// defaultDisposableDomains seeds every DisposableFilter unless Config.SkipDefaultDisposable is set.
const defaultDisposableDomains = `
0-mail.com
0815.ru
0clickemail.com
0wnd.net
0wnd.org
10minutemail.co.za
10minutemail.com
123-m.com
1fsdfdsfsdf.tk
1pad.de
20minutemail.com
2fdgdfgdfgdf.tk
2prong.com
30minutemail.com
33mail.com
3d-painting.com
4gfdsgfdgfd.tk
4warding.com
4warding.net
4warding.org
5ghgfhfghfgh.tk
60minutemail.com
675hosting.com
675hosting.net
675hosting.org
6hjgjhgkilkj.tk
6ip.us
6paq.com
6url.com
75hosting.com
75hosting.net
75hosting.org
7tags.com
9ox.net
a-bc.net
afrobacon.com
agedmail.com
ajaxapp.net
amilegit.com
amiri.net
amiriindustries.com
anonbox.net
anonmails.de
anonymbox.com
antichef.com
antichef.net
antireg.ru
antispam.de
antispam24.de
antispammail.de
armyspy.com
artman-conception.com
azmeil.tk
baxomale.ht.cx
beefmilk.com
bigstring.com
binkmail.com
bio-muesli.net
bobmail.info
bodhi.lawlita.com
bofthew.com
bootybay.de
boun.cr
bouncr.com
breakthru.com
brefmail.com
broadbandninja.com
bsnow.net
bspamfree.org
bugmenot.com
bumpymail.com
casualdx.com
centermail.com
centermail.net
chogmail.com
choicemail1.com
clixser.com
cool.fr.nf
courriel.fr.nf
courrieltemporaire.com
cubiclink.com
curryworld.de
cust.in
dacoolest.com
dandikmail.com
dayrep.com
deadaddress.com
deadspam.com
delikkt.de
despam.it
despammed.com
devnullmail.com
dfgh.net
digitalsanctuary.com
discard.email
discardmail.com
discardmail.de
disposableaddress.com
disposableemailaddresses.com
disposableinbox.com
dispose.it
dispostable.com
dodgeit.com
dodgit.com
dodgit.org
donemail.ru
dontreg.com
dontsendmespam.de
dump-email.info
dumpandjunk.com
dumpmail.de
dumpyemail.com
e-mail.com
e-mail.org
e4ward.com
email60.com
emaildienst.de
emailigo.de
emailinfive.com
emailmiser.com
emailsensei.com
emailtemporario.com.br
emailwarden.com
emailx.at.hm
emailxfer.com
emeil.in
emeil.ir
emz.net
enterto.com
ephemail.net
etranquil.com
etranquil.net
etranquil.org
explodemail.com
fake-mail.com
fakeinbox.com
fakeinformation.com
fansworldwide.de
fantasymail.de
fightallspam.com
filzmail.com
fivemail.de
fleckens.hu
frapmail.com
friendlymail.co.uk
fuckingduh.com
fudgerub.com
fyii.de
garliclife.com
gehensiemirnichtaufdensack.de
get1mail.com
get2mail.fr
getairmail.com
getonemail.com
ghosttexter.de
giantmail.de
girlsundertheinfluence.com
gishpuppy.com
gmial.com
goemailgo.com
gotmail.net
gotmail.org
gotti.otherinbox.com
great-host.in
greensloth.com
gsrv.co.uk
guerillamail.biz
guerillamail.com
guerillamail.net
guerillamail.org
guerrillamail.biz
guerrillamail.com
guerrillamail.de
guerrillamail.info
guerrillamail.net
guerrillamail.org
guerrillamailblock.com
gustr.com
h.mintemail.com
h8s.org
haltospam.com
harakirimail.com
hat-geld.de
herp.in
hidemail.de
hidzz.com
hmamail.com
hochsitze.com
hotpop.com
hulapla.de
ieatspam.eu
ieatspam.info
ihateyoualot.info
iheartspam.org
imails.info
inboxclean.com
inboxclean.org
incognitomail.com
incognitomail.net
incognitomail.org
insorg-mail.info
ipoo.org
irish2me.com
iwi.net
jetable.com
jetable.fr.nf
jetable.net
jetable.org
jnxjn.com
junk1e.com
kasmail.com
kaspop.com
killmail.com
killmail.net
klassmaster.com
klassmaster.net
klzlk.com
knol-power.nl
kulturbetrieb.info
kurzepost.de
letthemeatspam.com
lhsdv.com
lifebyfood.com
link2mail.net
litedrop.com
lol.ovpn.to
lookugly.com
lopl.co.cc
lr78.com
m4ilweb.info
maboard.com
mail-temp.com
mail-temporaire.fr
mail.by
mail.mezimages.net
mail.zp.ua
mail1a.de
mail21.cc
mail2rss.org
mail333.com
mail4trash.com
mailbidon.com
mailbiz.biz
mailblocks.com
mailbucket.org
mailcat.biz
mailcatch.com
mailde.de
mailde.info
maildrop.cc
maildu.de
maildx.com
maileater.com
mailexpire.com
mailfa.tk
mailforspam.com
mailfreeonline.com
mailguard.me
mailimate.com
mailin8r.com
mailinater.com
mailinator.com
mailinator.net
mailinator.org
mailinator2.com
mailincubator.com
mailismagic.com
mailme.ir
mailme.lv
mailmetrash.com
mailmoat.com
mailms.com
mailnator.com
mailnesia.com
mailnull.com
mailorg.org
mailpick.biz
mailproxsy.com
mailquack.com
mailrock.biz
mailsac.com
mailscrap.com
mailseal.de
mailshell.com
mailsiphon.com
mailslapping.com
mailslite.com
mailtemp.info
mailtome.de
mailtrash.net
mailtv.net
mailtv.tv
mailzilla.com
mailzilla.org
mbx.cc
mega.zik.dj
meinspamschutz.de
meltmail.com
messagebeamer.de
mezimages.net
mierdamail.com
mintemail.com
moburl.com
moncourrier.fr.nf
monemail.fr.nf
monmail.fr.nf
msa.minsmail.com
mt2009.com
mt2014.com
mx0.wwwnew.eu
mycleaninbox.net
mypartyclip.de
myphantomemail.com
mysamp.de
mytemp.email
mytempemail.com
mytempmail.com
mytrashmail.com
neomailbox.com
nepwk.com
nervmich.net
nervtmich.net
netmails.com
netmails.net
netzidiot.de
neverbox.com
nice-4u.com
nincsmail.com
nnh.com
no-spam.ws
nobulk.com
noclickemail.com
nogmailspam.info
nomail.xl.cx
nomail2me.com
nomorespamemails.com
nospam.ze.tc
nospam4.us
nospamfor.us
nospammail.net
notmailinator.com
nowhere.org
nowmymail.com
nurfuerspam.de
nwldx.com
objectmail.com
obobbo.com
odaymail.com
olypmall.ru
oneoffemail.com
onewaymail.com
online.ms
oopi.org
ordinaryamerican.net
otherinbox.com
ourklips.com
outlawspam.com
ovpn.to
owlpic.com
pancakemail.com
pcusers.otherinbox.com
pepbot.com
pfui.ru
pimpedupmyspace.com
pjjkp.com
plexolan.de
politikerclub.de
poofy.org
pookmail.com
privacy.net
proxymail.eu
prtnx.com
punkass.com
putthisinyourspamdatabase.com
quickinbox.com
rcpt.at
recode.me
recursor.net
regbypass.com
rejectmail.com
rhyta.com
rmqkr.net
royal.net
rtrtr.com
s0ny.net
safe-mail.net
safersignup.de
safetymail.info
safetypost.de
sandelf.de
saynotospams.com
schafmail.de
schrott-email.de
secretemail.de
secure-mail.biz
selfdestructingmail.com
sendspamhere.com
sharklasers.com
shieldedmail.com
shiftmail.com
shitmail.me
shitware.nl
shmeriously.com
shortmail.net
sibmail.com
sinnlos-mail.de
slapsfromlastnight.com
slaskpost.se
smellfear.com
snakemail.com
sneakemail.com
snkmail.com
sofimail.com
sofort-mail.de
sogetthis.com
soodonims.com
spam.la
spam.su
spam4.me
spamavert.com
spambob.com
spambob.net
spambob.org
spambog.com
spambog.de
spambog.net
spambog.ru
spambooger.com
spambox.info
spambox.irishspringrealty.com
spambox.us
spamcannon.com
spamcannon.net
spamcero.com
spamcon.org
spamcorptastic.com
spamcowboy.com
spamcowboy.net
spamcowboy.org
spamday.com
spamdecoy.net
spamex.com
spamfree.eu
spamfree24.com
spamfree24.de
spamfree24.eu
spamfree24.info
spamfree24.net
spamfree24.org
spamgourmet.com
spamherelots.com
spamhereplease.com
spamhole.com
spamify.com
spaminator.de
spamkill.info
spaml.com
spaml.de
spammotel.com
spamobox.com
spamoff.de
spamsalad.in
spamslicer.com
spamspot.com
spamstack.net
spamthis.co.uk
spamthisplease.com
spamtrail.com
speed.1s.fr
spikio.com
spoofmail.de
stuffmail.de
supergreatmail.com
supermailer.jp
suremail.info
teewars.org
teleworm.com
teleworm.us
temp-mail.io
temp-mail.org
tempail.com
tempalias.com
tempe-mail.com
tempemail.biz
tempemail.com
tempemail.net
tempinbox.co.uk
tempinbox.com
tempmail.com
tempmail.it
tempmail.org
tempmail2.com
tempmailaddress.com
tempmaildemo.com
tempmailer.com
tempmailer.de
tempomail.fr
temporarily.de
temporarioemail.com.br
temporaryemail.net
temporaryforwarding.com
temporaryinbox.com
thanksnospam.info
thankyou2010.com
thisisnotmyrealemail.com
thismail.net
throwawayemailaddress.com
throwawaymail.com
tilien.com
tmailinator.com
tradermail.info
trash-amil.com
trash-mail.at
trash-mail.com
trash-mail.de
trash2009.com
trashdevil.com
trashdevil.de
trashemail.de
trashmail.at
trashmail.com
trashmail.de
trashmail.me
trashmail.net
trashmail.org
trashmail.ws
trashmailer.com
trashymail.com
trashymail.net
trialmail.de
trillianpro.com
turual.com
twinmail.de
tyldd.com
uggsrock.com
upliftnow.com
uplipht.com
venompen.com
veryrealemail.com
viditag.com
vipmail.name
vipmail.pw
vpn.st
vsimcard.com
vubby.com
wasteland.rfc822.org
webemail.me
weg-werf-email.de
wegwerf-emails.de
wegwerfadresse.de
wegwerfemail.com
wegwerfemail.de
wegwerfmail.de
wegwerfmail.info
wegwerfmail.net
wegwerfmail.org
wh4f.org
whyspam.me
willselfdestruct.com
winemaven.info
wronghead.com
wuzup.net
wuzupmail.net
www.e4ward.com
www.gishpuppy.com
www.mailinator.com
wwwnew.eu
xagloo.com
xemaps.com
xents.com
xmaily.com
xoxy.net
yep.it
yogamaven.com
yopmail.com
yopmail.fr
yopmail.net
youmailr.com
yourdomain.com
yourlifesucks.cu.cc
yuurok.com
zehnminutenmail.de
zippymail.info
zoemail.net
zoemail.org
`
